package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// GetDecision returns the unexpired decision stored under hash, or an error
// wrapping common.ErrNotFound.
func (s *Storage) GetDecision(ctx context.Context, hash string) (*model.DecisionEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	var (
		entry        model.DecisionEntry
		decisionType string
		result       []byte
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT input_hash, decision_type, result, created_at, expires_at
		FROM ai_decision_cache
		WHERE input_hash = ? AND expires_at > ?
	`), hash, s.timestamp(s.now())).Scan(
		&entry.InputHash,
		&decisionType,
		&result,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decision %s: %w", hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}

	entry.DecisionType = model.DecisionType(decisionType)
	entry.Result = result
	return &entry, nil
}

// UpsertDecision stores entry under its hash, replacing any previous value.
func (s *Storage) UpsertDecision(ctx context.Context, entry *model.DecisionEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDecision(entry); err != nil {
		return err
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO ai_decision_cache (input_hash, decision_type, result, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (input_hash) DO UPDATE SET
			decision_type = excluded.decision_type,
			result = excluded.result,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`),
		entry.InputHash, string(entry.DecisionType), string(entry.Result),
		s.timestamp(createdAt), s.timestamp(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert decision: %w", err)
	}
	return nil
}

// DeleteExpiredDecisions removes every entry that expired before now.
func (s *Storage) DeleteExpiredDecisions(ctx context.Context, now time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM ai_decision_cache WHERE expires_at < ?`), s.timestamp(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired decisions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted decisions: %w", err)
	}
	return n, nil
}
