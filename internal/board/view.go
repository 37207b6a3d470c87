package board

import "github.com/gosuda/kanban/internal/domain"

// View is a point-in-time copy of the board. Mutating it does not affect the
// store.
type View struct {
	Columns []ColumnView `json:"columns"`
	Form    Form         `json:"form"`
}

// ColumnView is one column of a View.
type ColumnView struct {
	Name  domain.ColumnName `json:"name"`
	Key   string            `json:"key"`
	Tasks []TaskView        `json:"tasks"`
}

// TaskView is a task plus its editor draft and the number of gateway calls
// still in flight for it.
type TaskView struct {
	domain.Task
	Draft   *Draft `json:"draft,omitempty"`
	Pending int    `json:"pending"`
}

// Column returns the named column of the view, or nil.
func (v View) Column(name domain.ColumnName) *ColumnView {
	for i := range v.Columns {
		if v.Columns[i].Name == name {
			return &v.Columns[i]
		}
	}
	return nil
}

// IDs returns the task ids of the column in display order.
func (c ColumnView) IDs() []string {
	ids := make([]string, len(c.Tasks))
	for i, t := range c.Tasks {
		ids[i] = t.ID
	}
	return ids
}
