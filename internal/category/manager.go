package category

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lorekeep/lorekeep/internal/store"
)

// managerStore is the slice of the store the Manager needs.
type managerStore interface {
	ListCategories(ctx context.Context, ownerID string) ([]store.CategoryCount, error)
	RenameCategory(ctx context.Context, ownerID string, id uuid.UUID, newName string) error
	DeleteCategory(ctx context.Context, ownerID string, id uuid.UUID) error
}

// Manager exposes the owner-facing taxonomy operations.
type Manager struct {
	store  managerStore
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(s managerStore, logger *slog.Logger) (*Manager, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: s, logger: logger}, nil
}

// List returns the owner's categories with item counts, newest first.
func (m *Manager) List(ctx context.Context, ownerID string) ([]store.CategoryCount, error) {
	return m.store.ListCategories(ctx, ownerID)
}

// Rename changes a category's name. Returns store.ErrCategoryExists
// when the new name collides with another category of the same owner.
func (m *Manager) Rename(ctx context.Context, ownerID string, id uuid.UUID, newName string) error {
	if err := m.store.RenameCategory(ctx, ownerID, id, newName); err != nil {
		return err
	}
	m.logger.Info("category renamed", "owner_id", ownerID, "category_id", id, "name", newName)
	return nil
}

// Delete removes a category. Its items move to the owner's fallback
// category rather than being lost.
func (m *Manager) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	return m.store.DeleteCategory(ctx, ownerID, id)
}
