package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/moderation"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [names...]",
		Short: "Match ingredient names to catalog products",
		Long: `Resolve ingredient names against the product catalog.

Names come from arguments, from --file (one per line, "-" for stdin), or both.
By default every name is handled as one batch. With --stream names are read
and submitted one at a time, so the queue coalesces whatever arrives close
together into shared reasoning-service calls.`,
		RunE: runProcess,
	}

	cmd.Flags().StringP("file", "f", "", "read names from a file, one per line (- for stdin)")
	cmd.Flags().Bool("stream", false, "submit names individually as they are read")
	cmd.Flags().Int("workers", moderation.DefaultBatchSize, "concurrent submissions in stream mode")
	cmd.Flags().Bool("json", false, "print results as JSON")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	stream, _ := cmd.Flags().GetBool("stream")
	workers, _ := cmd.Flags().GetInt("workers")
	asJSON, _ := cmd.Flags().GetBool("json")

	if file == "" && len(args) == 0 {
		return fmt.Errorf("no ingredient names given: pass them as arguments or with --file")
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context(), func() string {
		return cli.RenderStats(a.mod.Stats())
	})

	source, closeSource, err := openSource(cmd.InOrStdin(), file)
	if err != nil {
		return err
	}
	defer closeSource()

	var (
		names   []string
		results []model.ModerationResult
	)
	if stream {
		names, results, err = processStream(ctx, a.mod, args, source, workers, cmd.ErrOrStderr())
	} else {
		names, results, err = processBatch(ctx, a.mod, args, source)
	}
	if err != nil && !errors.Is(err, cli.ErrInputCancelled) {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, names, results)
	}
	_, _ = fmt.Fprintln(out, cli.RenderResults(names, results))
	_, _ = fmt.Fprintln(out, cli.RenderStats(a.mod.Stats()))
	if interrupts.WasInterrupted() {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Run interrupted, results are partial"))
	}
	return nil
}

// openSource returns a line source for --file, or nil when none was given.
func openSource(stdin io.Reader, file string) (*cli.LineReader, func(), error) {
	switch file {
	case "":
		return nil, func() {}, nil
	case "-":
		return cli.NewLineReader(stdin), func() {}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	return cli.NewLineReader(f), func() { _ = f.Close() }, nil
}

func processBatch(ctx context.Context, mod *moderation.Moderator, args []string, source *cli.LineReader) ([]string, []model.ModerationResult, error) {
	names := append([]string(nil), args...)
	if source != nil {
		lines, err := source.ReadAll(ctx)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, lines...)
	}

	results, err := mod.ProcessBatch(ctx, names)
	if err != nil {
		return nil, nil, err
	}
	return names, results, nil
}

// processStream submits names as they are read, bounded by workers.
// Results keep input order.
func processStream(ctx context.Context, mod *moderation.Moderator, args []string, source *cli.LineReader, workers int, progressOut io.Writer) ([]string, []model.ModerationResult, error) {
	var (
		mu      sync.Mutex
		names   []string
		results []model.ModerationResult
	)

	progress := cli.NewProgress(progressOut, -1, "Moderating")
	defer progress.Finish()

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	submit := func(name string) {
		mu.Lock()
		idx := len(names)
		names = append(names, name)
		results = append(results, model.ModerationResult{})
		mu.Unlock()

		g.Go(func() error {
			r := mod.ProcessOne(gctx, name)
			mu.Lock()
			results[idx] = r
			mu.Unlock()
			progress.Add(1)
			return nil
		})
	}

	for _, name := range args {
		submit(name)
	}

	var readErr error
	if source != nil {
		for {
			line, err := source.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				readErr = err
				break
			}
			submit(line)
		}
	}

	if err := g.Wait(); err != nil {
		return names, results, err
	}
	return names, results, readErr
}

type jsonResult struct {
	Name string `json:"name"`
	model.ModerationResult
}

func writeJSON(w io.Writer, names []string, results []model.ModerationResult) error {
	out := make([]jsonResult, len(results))
	for i := range results {
		out[i] = jsonResult{Name: names[i], ModerationResult: results[i]}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
