package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// DedupMode controls how hard TaskSink looks for an existing pending task
// before inserting a new one.
type DedupMode string

const (
	// DedupShallow looks for any pending task of the same type, logs a
	// match and inserts regardless.
	DedupShallow DedupMode = "shallow"
	// DedupPayload skips the insert when a pending task of the same type
	// carries an equal suggested action.
	DedupPayload DedupMode = "payload"
)

// Valid reports whether m is a known mode.
func (m DedupMode) Valid() bool {
	return m == DedupShallow || m == DedupPayload
}

// TaskStore persists moderation tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.ModerationTask) error
	FindPendingTasks(ctx context.Context, taskType model.TaskType) ([]model.ModerationTask, error)
}

// TaskSink records review tasks for a human moderator.
type TaskSink struct {
	store TaskStore
	mode  DedupMode
}

// NewTaskSink creates a sink. An unknown mode falls back to DedupShallow.
func NewTaskSink(store TaskStore, mode DedupMode) *TaskSink {
	if !mode.Valid() {
		mode = DedupShallow
	}
	return &TaskSink{store: store, mode: mode}
}

// Mode returns the dedup mode in effect.
func (s *TaskSink) Mode() DedupMode {
	return s.mode
}

// Create inserts a pending task and reports whether it was inserted. A
// failed duplicate lookup does not prevent the insert.
func (s *TaskSink) Create(ctx context.Context, taskType model.TaskType, productID *string, action map[string]any, confidence float64) (bool, error) {
	payload, err := canonicalPayload(action)
	if err != nil {
		return false, err
	}

	pending, err := s.store.FindPendingTasks(ctx, taskType)
	if err != nil {
		slog.Warn("Failed to check for pending tasks", "task_type", taskType, "error", err)
	}

	if len(pending) > 0 {
		switch s.mode {
		case DedupPayload:
			for i := range pending {
				if reflect.DeepEqual(pending[i].SuggestedAction, payload) {
					slog.Debug("Skipping duplicate moderation task",
						"task_type", taskType,
						"existing_id", pending[i].ID)
					return false, nil
				}
			}
		default:
			slog.Debug("Pending task of the same type exists",
				"task_type", taskType,
				"pending", len(pending))
		}
	}

	task := &model.ModerationTask{
		TaskType:        taskType,
		ProductID:       productID,
		SuggestedAction: payload,
		Confidence:      confidence,
		Status:          model.TaskPending,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return false, fmt.Errorf("failed to create %s task: %w", taskType, err)
	}
	return true, nil
}

// canonicalPayload gives action the shape it has after a store round trip
// so payloads compare equal regardless of where they came from.
func canonicalPayload(action map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggested action: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode suggested action: %w", err)
	}
	return out, nil
}
