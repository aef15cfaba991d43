package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// Technician is a crew member a cue can be assigned to.
type Technician struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// PutTechnician inserts or renames a technician.
func (s *SQLiteStore) PutTechnician(ctx context.Context, t Technician) error {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	if t.ID == "" || t.Name == "" {
		return fmt.Errorf("technician id and name are required")
	}
	const q = `
		INSERT INTO technicians (id, name, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role
	`
	if _, err := s.db.ExecContext(ctx, q, t.ID, t.Name, t.Role, formatTime(time.Now())); err != nil {
		return fmt.Errorf("put technician: %w", err)
	}
	return nil
}

// DeleteTechnician removes a technician. Cues keep the id and simply lose the display name.
func (s *SQLiteStore) DeleteTechnician(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM technicians WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete technician: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("technician not found: %s", id)
	}
	return nil
}

// ListTechnicians returns the directory sorted by name.
func (s *SQLiteStore) ListTechnicians(ctx context.Context) ([]Technician, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, role FROM technicians ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	var out []Technician
	for rows.Next() {
		var t Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Role); err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NameOf implements runsheet.Directory. Unknown ids and lookup failures yield "".
func (s *SQLiteStore) NameOf(technicianID string) string {
	var name string
	err := s.db.QueryRow(`SELECT name FROM technicians WHERE id = ?`, technicianID).Scan(&name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warn("Technician lookup failed", "technician", technicianID, "error", err)
		}
		return ""
	}
	return name
}

var _ runsheet.Directory = (*SQLiteStore)(nil)
