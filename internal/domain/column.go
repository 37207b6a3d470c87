package domain

import (
	"fmt"
	"strings"
)

// ColumnName identifies a board column. The set is fixed.
type ColumnName string

const (
	ColumnToDo       ColumnName = "To Do"
	ColumnInProgress ColumnName = "In Progress"
	ColumnDone       ColumnName = "Done"
)

// ColumnNames lists the board columns in display order. Fetched tasks always
// land in the first one.
func ColumnNames() []ColumnName {
	return []ColumnName{ColumnToDo, ColumnInProgress, ColumnDone}
}

// Key returns the URL-safe key for the column ("todo", "in_progress", "done").
func (c ColumnName) Key() string {
	switch c {
	case ColumnToDo:
		return "todo"
	case ColumnInProgress:
		return "in_progress"
	case ColumnDone:
		return "done"
	default:
		return ""
	}
}

// Valid reports whether c is one of the fixed board columns.
func (c ColumnName) Valid() bool {
	return c.Key() != ""
}

// ParseColumn resolves a column from its display name or its key, ignoring case
// and surrounding whitespace.
func ParseColumn(s string) (ColumnName, error) {
	s = strings.TrimSpace(s)
	for _, c := range ColumnNames() {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Key()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

// Column is a named, ordered bucket of tasks. Slice order is display order.
type Column struct {
	Name  ColumnName `json:"name"`
	Tasks []Task     `json:"tasks"`
}
