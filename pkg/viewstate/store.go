// Package viewstate persists client-local editor state per project and view.
package viewstate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultView is the view name used by the hierarchy editor.
const DefaultView = "editor"

// State is what the editor restores on startup.
type State struct {
	Project      string         `json:"-"`
	View         string         `json:"-"`
	Expanded     []string       `json:"expanded"`
	Selection    []string       `json:"selection"`
	ShownColumns []string       `json:"shownColumns"`
	ColumnWidths map[string]int `json:"columnWidths"`
	ColumnOrder  []string       `json:"columnOrder"`
	UpdatedAt    time.Time      `json:"-"`
}

// ExpandedSet returns Expanded as a set.
func (s *State) ExpandedSet() map[string]bool {
	set := make(map[string]bool, len(s.Expanded))
	for _, id := range s.Expanded {
		set[id] = true
	}
	return set
}

func newState(project, view string) *State {
	return &State{
		Project:      project,
		View:         view,
		Expanded:     []string{},
		Selection:    []string{},
		ShownColumns: []string{},
		ColumnWidths: map[string]int{},
		ColumnOrder:  []string{},
	}
}

// Store is the sqlite-backed state database
type Store struct {
	db *sql.DB
}

// Open opens or creates viewstate.db in dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, "viewstate.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize view state: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS view_state (
		project TEXT NOT NULL,
		view TEXT NOT NULL,
		expanded TEXT NOT NULL DEFAULT '[]',
		selection TEXT NOT NULL DEFAULT '[]',
		shown_columns TEXT NOT NULL DEFAULT '[]',
		column_widths TEXT NOT NULL DEFAULT '{}',
		column_order TEXT NOT NULL DEFAULT '[]',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (project, view)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the saved state, or an empty state when nothing was saved.
func (s *Store) Load(project, view string) (*State, error) {
	query := `
	SELECT expanded, selection, shown_columns, column_widths, column_order, updated_at
	FROM view_state WHERE project = ? AND view = ?
	`

	st := newState(project, view)
	var expanded, selection, shown, widths, order string
	err := s.db.QueryRow(query, project, view).Scan(&expanded, &selection, &shown, &widths, &order, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load view state: %w", err)
	}

	fields := []struct {
		raw  string
		into any
	}{
		{expanded, &st.Expanded},
		{selection, &st.Selection},
		{shown, &st.ShownColumns},
		{widths, &st.ColumnWidths},
		{order, &st.ColumnOrder},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.into); err != nil {
			return nil, fmt.Errorf("unmarshal view state: %w", err)
		}
	}
	return st, nil
}

// Save replaces the stored state of st.Project and st.View.
func (s *Store) Save(st *State) error {
	if st.Project == "" || st.View == "" {
		return fmt.Errorf("save view state: project and view are required")
	}

	var encoded [5][]byte
	for i, v := range []any{
		nonNil(st.Expanded), nonNil(st.Selection), nonNil(st.ShownColumns),
		st.ColumnWidths, nonNil(st.ColumnOrder),
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal view state: %w", err)
		}
		encoded[i] = b
	}
	if st.ColumnWidths == nil {
		encoded[3] = []byte("{}")
	}

	query := `
	INSERT OR REPLACE INTO view_state (project, view, expanded, selection, shown_columns, column_widths, column_order, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	st.UpdatedAt = time.Now()
	_, err := s.db.Exec(query, st.Project, st.View,
		string(encoded[0]), string(encoded[1]), string(encoded[2]), string(encoded[3]), string(encoded[4]),
		st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save view state: %w", err)
	}
	return nil
}

// Reset deletes the stored state of a view.
func (s *Store) Reset(project, view string) error {
	if _, err := s.db.Exec(`DELETE FROM view_state WHERE project = ? AND view = ?`, project, view); err != nil {
		return fmt.Errorf("reset view state: %w", err)
	}
	return nil
}

// List returns every stored state of a project, most recently saved first.
func (s *Store) List(project string) ([]*State, error) {
	rows, err := s.db.Query(`SELECT view FROM view_state WHERE project = ? ORDER BY updated_at DESC`, project)
	if err != nil {
		return nil, fmt.Errorf("list view state: %w", err)
	}
	var views []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, err
		}
		views = append(views, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	states := make([]*State, 0, len(views))
	for _, v := range views {
		st, err := s.Load(project, v)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
