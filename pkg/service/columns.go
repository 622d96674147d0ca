package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

const (
	// DefaultColumnWidth is used for columns without a saved width.
	DefaultColumnWidth = 10
	minColumnWidth     = 3
)

// Column is an attribute shown next to the tree.
type Column struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

// Value returns the raw value of the column for data. Attributes win over
// the status and label fields; unmodelled server fields come last.
func (c Column) Value(data models.NodeData) any {
	if v, ok := data.Attrib[c.Name]; ok {
		return v
	}
	switch c.Name {
	case "status":
		return data.Status
	case "label":
		return data.Label
	}
	return data.Extra[c.Name]
}

// Cell formats the column value of data, truncated and padded to the width.
func (c Column) Cell(data models.NodeData) string {
	return FitCell(FormatValue(c.Value(data)), c.Width)
}

// FormatValue renders an attribute value for display. Whole JSON numbers
// print without a fraction.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// FitCell truncates s to width display cells and pads it on the right.
func FitCell(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// ParseColumns reads a comma separated list of attribute names, each
// optionally followed by ":width". Repeated names keep their first position.
func ParseColumns(spec string) ([]Column, error) {
	cols := []Column{}
	seen := map[string]bool{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, width, hasWidth := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column name missing in %q", part)
		}
		col := Column{Name: name}
		if hasWidth {
			w, err := strconv.Atoi(strings.TrimSpace(width))
			if err != nil || w < minColumnWidth {
				return nil, fmt.Errorf("invalid width %q for column %s: use a number of at least %d", width, name, minColumnWidth)
			}
			col.Width = w
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, col)
	}
	return cols, nil
}

// FormatColumns is the inverse of ParseColumns.
func FormatColumns(cols []Column) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s:%d", c.Name, c.Width))
	}
	return strings.Join(parts, ", ")
}

// Columns returns the shown columns in display order with their widths.
func (s *Service) Columns() []Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return resolveColumns(s.shownColumns, s.columnOrder, s.columnWidths)
}

// resolveColumns orders shown by order; shown names missing from order
// follow in their own order.
func resolveColumns(shown, order []string, widths map[string]int) []Column {
	pending := make(map[string]bool, len(shown))
	for _, name := range shown {
		pending[name] = true
	}
	out := []Column{}
	add := func(name string) {
		if !pending[name] {
			return
		}
		delete(pending, name)
		w := widths[name]
		if w < minColumnWidth {
			w = DefaultColumnWidth
		}
		out = append(out, Column{Name: name, Width: w})
	}
	for _, name := range order {
		add(name)
	}
	for _, name := range shown {
		add(name)
	}
	return out
}

// SetColumns shows cols in the given order. A zero width keeps the
// remembered one. Hidden columns keep their width and relative order.
func (s *Service) SetColumns(cols []Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shown := make([]string, 0, len(cols))
	named := make(map[string]bool, len(cols))
	for _, c := range cols {
		shown = append(shown, c.Name)
		named[c.Name] = true
		if c.Width > 0 {
			s.columnWidths[c.Name] = c.Width
		}
	}
	order := append([]string{}, shown...)
	for _, name := range s.columnOrder {
		if !named[name] {
			order = append(order, name)
		}
	}
	s.shownColumns = shown
	s.columnOrder = order
}
