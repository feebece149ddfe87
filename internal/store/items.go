package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// itemCols is the standard SELECT column list for scanItems.
const itemCols = `id, owner_id, category_id, raw_content, essence, tags,
	embedding IS NOT NULL, created_at`

// InsertItem persists a new item. vec may be nil when the embedding
// service was unavailable; the backfill sweep fills it in later.
func (s *Store) InsertItem(ctx context.Context, item Item, vec *pgvector.Vector) (Item, error) {
	if item.OwnerID == "" {
		return Item{}, fmt.Errorf("owner ID is required")
	}
	if item.RawContent == "" {
		return Item{}, fmt.Errorf("raw content is required")
	}
	if item.CategoryID == uuid.Nil {
		return Item{}, fmt.Errorf("category ID is required")
	}

	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return Item{}, fmt.Errorf("marshaling tags: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO items (owner_id, category_id, raw_content, essence, tags, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		item.OwnerID, item.CategoryID, item.RawContent, item.Essence, tagsJSON, vec,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("inserting item: %w", err)
	}
	item.HasEmbedding = vec != nil
	return item, nil
}

// GetItem fetches an item by ID, scoped to the owner.
// Returns ErrNotFound if absent or owned by someone else.
func (s *Store) GetItem(ctx context.Context, ownerID string, id uuid.UUID) (Item, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+itemCols+`
		 FROM items
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	item, err := scanItem(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Item{}, ErrNotFound
	case err != nil:
		return Item{}, fmt.Errorf("fetching item %s: %w", id, err)
	default:
		return item, nil
	}
}

// RecentItems returns the owner's newest items up to limit.
func (s *Store) RecentItems(ctx context.Context, ownerID string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemCols+`
		 FROM items
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// RecentKeywords returns up to limit distinct keywords from the
// owner's most recent items, newest first. Feeds prompt context so the
// AI can reuse established vocabulary.
func (s *Store) RecentKeywords(ctx context.Context, ownerID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 15
	}
	rows, err := s.pool.Query(ctx,
		`SELECT kw
		 FROM (
		   SELECT jsonb_array_elements_text(tags->'keywords') AS kw, created_at
		   FROM items
		   WHERE owner_id = $1 AND tags ? 'keywords'
		   ORDER BY created_at DESC
		   LIMIT 100
		 ) recent
		 GROUP BY kw
		 ORDER BY MAX(created_at) DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent keywords: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keywords: %w", err)
	}
	return keywords, nil
}

// UpdateItemEmbedding sets the embedding for an item. Used by the
// backfill sweep and never clears an existing vector.
func (s *Store) UpdateItemEmbedding(ctx context.Context, id uuid.UUID, vec pgvector.Vector) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET embedding = $1 WHERE id = $2`,
		vec, id,
	)
	if err != nil {
		return fmt.Errorf("updating embedding for item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemsMissingEmbedding returns up to limit items with a NULL
// embedding, oldest first, across all owners.
func (s *Store) ItemsMissingEmbedding(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemCols+`
		 FROM items
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items missing embedding: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// SearchKeyword finds the owner's items where any keyword appears in
// the raw content, essence, or tags. Filters are optional: a nil since
// means no time cutoff, empty categoryIDs means all categories.
func (s *Store) SearchKeyword(ctx context.Context, ownerID string, keywords []string,
	since *time.Time, categoryIDs []uuid.UUID, limit int) ([]Item, error) {

	if ownerID == "" || len(keywords) == 0 {
		return []Item{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	patterns := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		patterns = append(patterns, "%"+escapeLike(kw)+"%")
	}
	if len(patterns) == 0 {
		return []Item{}, nil
	}

	var catFilter []uuid.UUID
	if len(categoryIDs) > 0 {
		catFilter = categoryIDs
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+itemCols+`
		 FROM items
		 WHERE owner_id = $1
		   AND (raw_content ILIKE ANY($2) OR essence ILIKE ANY($2) OR tags::text ILIKE ANY($2))
		   AND ($3::timestamptz IS NULL OR created_at >= $3)
		   AND ($4::uuid[] IS NULL OR category_id = ANY($4))
		 ORDER BY created_at DESC
		 LIMIT $5`,
		ownerID, patterns, since, catFilter, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// SearchVector finds the owner's items nearest to vec by cosine
// distance. Items without an embedding are excluded. Similarity is
// reported in [0, 1]. The optional filters mirror SearchKeyword.
func (s *Store) SearchVector(ctx context.Context, ownerID string, vec pgvector.Vector,
	since *time.Time, categoryIDs []uuid.UUID, limit int) ([]VectorHit, error) {

	if ownerID == "" {
		return []VectorHit{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var catFilter []uuid.UUID
	if len(categoryIDs) > 0 {
		catFilter = categoryIDs
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+itemCols+`, 1 - (embedding <=> $2) AS similarity
		 FROM items
		 WHERE owner_id = $1
		   AND embedding IS NOT NULL
		   AND ($3::timestamptz IS NULL OR created_at >= $3)
		   AND ($4::uuid[] IS NULL OR category_id = ANY($4))
		 ORDER BY embedding <=> $2
		 LIMIT $5`,
		ownerID, vec, since, catFilter, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		var tagsJSON []byte
		if err := rows.Scan(&h.ID, &h.OwnerID, &h.CategoryID, &h.RawContent,
			&h.Essence, &tagsJSON, &h.HasEmbedding, &h.CreatedAt, &h.Similarity); err != nil {
			return nil, fmt.Errorf("scanning vector hit: %w", err)
		}
		if err := json.Unmarshal(tagsJSON, &h.Tags); err != nil {
			return nil, fmt.Errorf("unmarshaling tags: %w", err)
		}
		// Cosine distance can exceed 1 for unnormalized vectors; clamp
		// the similarity into [0, 1].
		if h.Similarity < 0 {
			h.Similarity = 0
		} else if h.Similarity > 1 {
			h.Similarity = 1
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector hits: %w", err)
	}
	return hits, nil
}

// escapeLike escapes LIKE metacharacters in a user-supplied keyword.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// scanItem reads a single Item from a pgx.Row (standard column set).
func scanItem(row pgx.Row) (Item, error) {
	var item Item
	var tagsJSON []byte
	if err := row.Scan(&item.ID, &item.OwnerID, &item.CategoryID, &item.RawContent,
		&item.Essence, &tagsJSON, &item.HasEmbedding, &item.CreatedAt); err != nil {
		return Item{}, err
	}
	if err := json.Unmarshal(tagsJSON, &item.Tags); err != nil {
		return Item{}, fmt.Errorf("unmarshaling tags: %w", err)
	}
	return item, nil
}

// scanItems reads Item structs from pgx.Rows (standard column set).
func scanItems(rows pgx.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		var tagsJSON []byte
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.CategoryID, &item.RawContent,
			&item.Essence, &tagsJSON, &item.HasEmbedding, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		if err := json.Unmarshal(tagsJSON, &item.Tags); err != nil {
			return nil, fmt.Errorf("unmarshaling tags: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}
