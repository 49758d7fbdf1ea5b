package material

import (
	"context"
	"fmt"

	"samserver/internal/domain"
	"samserver/internal/infra"
	"samserver/internal/sqlinline"
)

// HistoryLimit caps how many materials the history view returns.
const HistoryLimit = 20

// Store persists generated materials. The log is append-only; records are
// never updated or deleted from application code.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Insert appends a material record and returns its id.
func (s *Store) Insert(ctx context.Context, m domain.Material) (string, error) {
	var id string
	row := s.sql.QueryRow(ctx, sqlinline.QInsertMaterial,
		m.UserID, m.RequestID, m.Prompt, m.Material, string(m.Mode), m.Provider, m.LLMUsed, m.LatencyMS)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("insert material: %w", err)
	}
	return id, nil
}

// ListRecent returns up to HistoryLimit materials for the user, most recent
// first.
func (s *Store) ListRecent(ctx context.Context, userID string) ([]domain.Material, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectRecentMaterials, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var items []domain.Material
	for rows.Next() {
		var m domain.Material
		var mode string
		if err := rows.Scan(&m.ID, &m.Prompt, &m.Material, &mode, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		m.UserID = userID
		m.Mode = domain.Mode(mode)
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return items, nil
}
