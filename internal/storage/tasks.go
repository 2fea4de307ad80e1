package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Type   model.TaskType
	Status model.TaskStatus
	Limit  int
}

const taskColumns = `id, task_type, product_id, suggested_action, confidence, status, created_at, reviewed_at, notes`

// CreateTask inserts a moderation task, filling id, status and creation time
// when they are unset.
func (s *Storage) CreateTask(ctx context.Context, task *model.ModerationTask) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if task != nil && task.Status == "" {
		task.Status = model.TaskPending
	}
	if err := validateTask(task); err != nil {
		return err
	}

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.timestamp(s.now())
	}

	action, err := json.Marshal(task.SuggestedAction)
	if err != nil {
		return fmt.Errorf("failed to encode suggested action: %w", err)
	}

	var productID sql.NullString
	if task.ProductID != nil {
		productID = sql.NullString{String: *task.ProductID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO moderation_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		task.ID, string(task.TaskType), productID, string(action), task.Confidence,
		string(task.Status), s.timestamp(task.CreatedAt), nil, nullString(task.Notes),
	)
	if err != nil {
		return fmt.Errorf("failed to create moderation task: %w", err)
	}
	return nil
}

// FindPendingTasks returns pending tasks of one type, oldest first.
func (s *Storage) FindPendingTasks(ctx context.Context, taskType model.TaskType) ([]model.ModerationTask, error) {
	return s.ListTasks(ctx, TaskFilter{Type: taskType, Status: model.TaskPending})
}

// ListTasks returns tasks matching the filter, oldest first.
func (s *Storage) ListTasks(ctx context.Context, filter TaskFilter) ([]model.ModerationTask, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Type != "" {
		where = append(where, "task_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + taskColumns + ` FROM moderation_tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.ModerationTask
	for rows.Next() {
		var (
			task       model.ModerationTask
			taskType   string
			status     string
			productID  sql.NullString
			action     []byte
			reviewedAt sql.NullTime
			notes      sql.NullString
		)
		if err := rows.Scan(&task.ID, &taskType, &productID, &action, &task.Confidence,
			&status, &task.CreatedAt, &reviewedAt, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan moderation task: %w", err)
		}

		task.TaskType = model.TaskType(taskType)
		task.Status = model.TaskStatus(status)
		task.Notes = notes.String
		if productID.Valid {
			id := productID.String
			task.ProductID = &id
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time
			task.ReviewedAt = &t
		}
		if len(action) > 0 {
			if err := json.Unmarshal(action, &task.SuggestedAction); err != nil {
				return nil, fmt.Errorf("failed to decode suggested action for task %s: %w", task.ID, err)
			}
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moderation tasks: %w", err)
	}
	return tasks, nil
}
