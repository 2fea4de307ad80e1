package model

import (
	"fmt"
	"time"
)

// TaskType identifies what a moderation task asks a reviewer to do.
type TaskType string

// Moderation task types.
const (
	TaskLinkSuggestion  TaskType = "link_suggestion"
	TaskMergeSuggestion TaskType = "merge_suggestion"
	TaskNewProduct      TaskType = "new_product"
)

// TaskStatus is the review state of a moderation task.
type TaskStatus string

// Moderation task statuses.
const (
	TaskPending  TaskStatus = "pending"
	TaskApproved TaskStatus = "approved"
	TaskRejected TaskStatus = "rejected"
	TaskSkipped  TaskStatus = "skipped"
)

// ModerationTask is a human-reviewable proposal produced by the moderator.
type ModerationTask struct {
	CreatedAt       time.Time
	ReviewedAt      *time.Time
	ProductID       *string
	SuggestedAction map[string]any
	ID              string
	TaskType        TaskType
	Status          TaskStatus
	Notes           string
	Confidence      float64
}

// Validate checks the task type, status and confidence range.
func (t *ModerationTask) Validate() error {
	switch t.TaskType {
	case TaskLinkSuggestion, TaskMergeSuggestion, TaskNewProduct:
	default:
		return fmt.Errorf("invalid task type %q", t.TaskType)
	}
	switch t.Status {
	case TaskPending, TaskApproved, TaskRejected, TaskSkipped:
	default:
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", t.Confidence)
	}
	return nil
}
