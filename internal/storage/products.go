package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/textmatch"
)

const productColumns = `id, canonical_name, synonyms, category, calories, protein, fat, carbohydrates, created_at, updated_at`

// ListProducts loads the whole product dictionary in a stable order.
func (s *Storage) ListProducts(ctx context.Context) ([]model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM product_dictionary
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []model.Product
	for rows.Next() {
		p, err := s.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a product by id.
func (s *Storage) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getProductTx(ctx, s.db, id, false)
}

func (s *Storage) getProductTx(ctx context.Context, q queryable, id string, forUpdate bool) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product_dictionary WHERE id = ?`
	if forUpdate && s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}

	p, err := s.scanProduct(q.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProduct inserts a product, assigning an id when none is set.
func (s *Storage) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProduct(p); err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.timestamp(s.now())
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	synonyms, err := s.synonymsArg(p.Synonyms)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO product_dictionary (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		p.ID, strings.TrimSpace(p.CanonicalName), synonyms, nullString(p.Category),
		nullFloat(p.Calories), nullFloat(p.Protein), nullFloat(p.Fat), nullFloat(p.Carbohydrates),
		s.timestamp(p.CreatedAt), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// AppendSynonym adds synonym to the product unless it already names the
// product, either as its canonical name or an existing synonym. It reports
// whether the product was changed.
func (s *Storage) AppendSynonym(ctx context.Context, productID, synonym string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(productID, "productID"); err != nil {
		return false, err
	}
	if err := validateString(synonym, "synonym"); err != nil {
		return false, err
	}

	synonym = strings.TrimSpace(synonym)
	norm := textmatch.Normalize(synonym)
	appended := false

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.getProductTx(ctx, tx, productID, true)
		if err != nil {
			return err
		}

		if textmatch.Normalize(p.CanonicalName) == norm {
			return nil
		}
		for _, existing := range p.Synonyms {
			if textmatch.Normalize(existing) == norm {
				return nil
			}
		}

		synonyms, err := s.synonymsArg(append(p.Synonyms, synonym))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, s.rebind(`
			UPDATE product_dictionary SET synonyms = ?, updated_at = ? WHERE id = ?
		`), synonyms, s.timestamp(s.now()), productID)
		if err != nil {
			return fmt.Errorf("failed to update synonyms: %w", err)
		}
		appended = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return appended, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanProduct(row rowScanner) (*model.Product, error) {
	var (
		p                      model.Product
		category               sql.NullString
		calories, protein, fat sql.NullFloat64
		carbohydrates          sql.NullFloat64
	)

	synDest, decode := s.synonymsScanner(&p.Synonyms)
	err := row.Scan(&p.ID, &p.CanonicalName, synDest, &category,
		&calories, &protein, &fat, &carbohydrates, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	if err := decode(); err != nil {
		return nil, err
	}

	p.Category = category.String
	p.Calories = floatPtr(calories)
	p.Protein = floatPtr(protein)
	p.Fat = floatPtr(fat)
	p.Carbohydrates = floatPtr(carbohydrates)
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
