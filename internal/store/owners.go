package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateOwner inserts an owner, or updates name and occupation if the
// owner already exists. Safe to call repeatedly with the same ID.
func (s *Store) CreateOwner(ctx context.Context, owner Owner) error {
	if owner.ID == "" {
		return fmt.Errorf("owner ID is required")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO owners (id, name, occupation)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, occupation = EXCLUDED.occupation`,
		owner.ID, owner.Name, owner.Occupation,
	)
	if err != nil {
		return fmt.Errorf("upserting owner %s: %w", owner.ID, err)
	}
	return nil
}

// GetOwner fetches an owner by ID. Returns ErrOwnerNotFound if absent.
func (s *Store) GetOwner(ctx context.Context, ownerID string) (Owner, error) {
	var o Owner
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, occupation, created_at FROM owners WHERE id = $1`,
		ownerID,
	).Scan(&o.ID, &o.Name, &o.Occupation, &o.CreatedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Owner{}, ErrOwnerNotFound
	case err != nil:
		return Owner{}, fmt.Errorf("fetching owner %s: %w", ownerID, err)
	default:
		return o, nil
	}
}
