package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

type lineResult struct {
	err  error
	line string
}

// LineReader yields non-blank trimmed lines from a stream and can be
// abandoned through a context while a read is blocked.
type LineReader struct {
	lines chan lineResult
}

// NewLineReader starts reading r in the background.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{lines: make(chan lineResult)}

	go func() {
		defer close(lr.lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lr.lines <- lineResult{line: line}
			}
		}
		if err := scanner.Err(); err != nil {
			lr.lines <- lineResult{err: err}
		}
	}()

	return lr
}

// Next returns the next line, io.EOF at the end of input, or
// ErrInputCancelled when ctx ends first.
func (lr *LineReader) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// ReadAll collects every remaining line.
func (lr *LineReader) ReadAll(ctx context.Context) ([]string, error) {
	var out []string
	for {
		line, err := lr.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, line)
	}
}
