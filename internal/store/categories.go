package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// FallbackCategoryName receives items whose category is deleted.
const FallbackCategoryName = "Uncategorized"

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, raised when two callers race to create the same category.
const uniqueViolation = "23505"

// categoryCols is the column list every category scan expects.
const categoryCols = `id, owner_id, name, description, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategory inserts a new category for the owner. Returns
// ErrCategoryExists when a category with the same name already exists;
// callers should reread with GetCategoryByName and use that row.
func (s *Store) CreateCategory(ctx context.Context, ownerID, name, description string) (Category, error) {
	if ownerID == "" || name == "" {
		return Category{}, fmt.Errorf("owner ID and name are required")
	}

	c, err := scanCategory(s.pool.QueryRow(ctx,
		`INSERT INTO categories (owner_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+categoryCols,
		ownerID, name, description,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Category{}, ErrCategoryExists
		}
		return Category{}, fmt.Errorf("creating category %q: %w", name, err)
	}
	return c, nil
}

// GetCategoryByName fetches a category by owner and exact name.
// Returns ErrNotFound if absent.
func (s *Store) GetCategoryByName(ctx context.Context, ownerID, name string) (Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`SELECT `+categoryCols+`
		 FROM categories
		 WHERE owner_id = $1 AND name = $2`,
		ownerID, name,
	))

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Category{}, ErrNotFound
	case err != nil:
		return Category{}, fmt.Errorf("fetching category %q: %w", name, err)
	default:
		return c, nil
	}
}

// GetCategory fetches a category by ID, scoped to the owner.
// Returns ErrNotFound if absent or owned by someone else.
func (s *Store) GetCategory(ctx context.Context, ownerID string, id uuid.UUID) (Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`SELECT `+categoryCols+`
		 FROM categories
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Category{}, ErrNotFound
	case err != nil:
		return Category{}, fmt.Errorf("fetching category %s: %w", id, err)
	default:
		return c, nil
	}
}

// ListCategories returns the owner's categories with item counts,
// newest first.
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]CategoryCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.owner_id, c.name, c.description, c.created_at, c.updated_at,
		        COUNT(i.id) AS item_count
		 FROM categories c
		 LEFT JOIN items i ON i.category_id = c.id
		 WHERE c.owner_id = $1
		 GROUP BY c.id
		 ORDER BY c.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.ID, &cc.OwnerID, &cc.Name, &cc.Description,
			&cc.CreatedAt, &cc.UpdatedAt, &cc.ItemCount); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return out, nil
}

// RecentCategoryNames returns up to limit category names for the
// owner, newest first. Used to bound the taxonomy shown to the AI.
func (s *Store) RecentCategoryNames(ctx context.Context, ownerID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM categories
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent category names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning category name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category names: %w", err)
	}
	return names, nil
}

// RenameCategory updates a category's name, scoped to the owner.
// Returns ErrNotFound if the category doesn't exist for the owner and
// ErrCategoryExists if the new name collides with another category.
func (s *Store) RenameCategory(ctx context.Context, ownerID string, id uuid.UUID, newName string) error {
	if newName == "" {
		return fmt.Errorf("new name is required")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE categories SET name = $1, updated_at = now()
		 WHERE id = $2 AND owner_id = $3`,
		newName, id, ownerID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrCategoryExists
		}
		return fmt.Errorf("renaming category %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category and reassigns its items to the
// owner's fallback category, creating it if missing. The reassignment
// and deletion are atomic.
//
// Deleting the fallback category itself is rejected.
func (s *Store) DeleteCategory(ctx context.Context, ownerID string, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	// Serialize concurrent taxonomy changes for the same owner.
	if _, lockErr := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); lockErr != nil {
		return fmt.Errorf("acquiring advisory lock: %w", lockErr)
	}

	var name string
	err = tx.QueryRow(ctx,
		`SELECT name FROM categories WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&name)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("fetching category %s: %w", id, err)
	}
	if name == FallbackCategoryName {
		return fmt.Errorf("cannot delete the %q category", FallbackCategoryName)
	}

	fallbackID, err := ensureFallbackCategory(ctx, tx, ownerID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE items SET category_id = $1 WHERE category_id = $2`,
		fallbackID, id,
	); err != nil {
		return fmt.Errorf("reassigning items from category %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	); err != nil {
		return fmt.Errorf("deleting category %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing category deletion: %w", err)
	}

	s.logger.Info("category deleted", "owner_id", ownerID, "category", name)
	return nil
}

// ensureFallbackCategory returns the fallback category's ID, inserting
// it if the owner doesn't have one yet.
func ensureFallbackCategory(ctx context.Context, q querier, ownerID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx,
		`INSERT INTO categories (owner_id, name, description)
		 VALUES ($1, $2, 'Items without a category')
		 ON CONFLICT (owner_id, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		ownerID, FallbackCategoryName,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensuring fallback category: %w", err)
	}
	return id, nil
}
