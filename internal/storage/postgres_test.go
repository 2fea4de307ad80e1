package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

func newMockPostgres(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewWithDB(db, DialectPostgres)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, mock
}

func TestPostgresListProducts(t *testing.T) {
	store, mock := newMockPostgres(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "canonical_name", "synonyms", "category", "calories", "protein", "fat", "carbohydrates", "created_at", "updated_at"}).
		AddRow("p1", "Молоко", `{"молоко коровье","молочко"}`, "dairy", 52.0, nil, nil, nil, created, created).
		AddRow("p2", "Сыр", `{}`, nil, nil, nil, nil, nil, created, created)
	mock.ExpectQuery(`SELECT id, canonical_name, synonyms, .* FROM product_dictionary ORDER BY created_at, id`).
		WillReturnRows(rows)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, []string{"молоко коровье", "молочко"}, products[0].Synonyms)
	require.NotNil(t, products[0].Calories)
	assert.Empty(t, products[1].Synonyms)
	assert.Empty(t, products[1].Category)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendSynonymLocksRow(t *testing.T) {
	store, mock := newMockPostgres(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM product_dictionary WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "canonical_name", "synonyms", "category", "calories", "protein", "fat", "carbohydrates", "created_at", "updated_at"}).
			AddRow("p1", "Молоко", `{}`, nil, nil, nil, nil, nil, created, created))
	mock.ExpectExec(`UPDATE product_dictionary SET synonyms = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := store.AppendSynonym(ctx, "p1", "молоко пастеризованное")
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDecisions(t *testing.T) {
	store, mock := newMockPostgres(t)
	ctx := context.Background()
	now := store.now()

	mock.ExpectExec(`INSERT INTO ai_decision_cache .* VALUES \(\$1, \$2, \$3, \$4, \$5\) ON CONFLICT \(input_hash\) DO UPDATE`).
		WithArgs("h1", "link", `{"action":"skipped"}`, now, now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpsertDecision(ctx, &model.DecisionEntry{
		InputHash:    "h1",
		DecisionType: model.DecisionLink,
		Result:       json.RawMessage(`{"action":"skipped"}`),
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}))

	mock.ExpectQuery(`FROM ai_decision_cache WHERE input_hash = \$1 AND expires_at > \$2`).
		WithArgs("h2", now).
		WillReturnRows(sqlmock.NewRows([]string{"input_hash", "decision_type", "result", "created_at", "expires_at"}))

	_, err := store.GetDecision(ctx, "h2")
	assert.ErrorIs(t, err, common.ErrNotFound)

	mock.ExpectExec(`DELETE FROM ai_decision_cache WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.DeleteExpiredDecisions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateTask(t *testing.T) {
	store, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO moderation_tasks .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)`).
		WithArgs(sqlmock.AnyArg(), "new_product", nil, `{"category":"fruits","name":"Авокадо"}`, 0.9, "pending", store.now(), nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	task := &model.ModerationTask{
		TaskType:        model.TaskNewProduct,
		SuggestedAction: map[string]any{"name": "Авокадо", "category": "fruits"},
		Confidence:      0.9,
	}
	require.NoError(t, store.CreateTask(ctx, task))
	require.NoError(t, mock.ExpectationsWereMet())
}
