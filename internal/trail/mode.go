package trail

import (
	"fmt"
	"strings"

	"github.com/roach88/lineage/internal/record"
)

// Source is the read side of a record store.
type Source interface {
	Get(id record.ID) (*record.Record, bool)
}

// Renderer turns the lineage of id into text. The boolean is false when
// nothing could be rendered.
type Renderer interface {
	Render(src Source, id record.ID) (string, bool)
}

// Mode selects a Renderer.
type Mode int

const (
	// Table is the default failure rendering.
	Table Mode = iota
	Tree
	Expression
)

var modeNames = [...]string{
	Table:      "table",
	Tree:       "tree",
	Expression: "expression",
}

// String returns the mode name.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Renderer returns the renderer for m. Unknown modes fall back to Table.
func (m Mode) Renderer() Renderer {
	switch m {
	case Tree:
		return tree{}
	case Expression:
		return expression{}
	default:
		return table{}
	}
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return Mode(m), nil
		}
	}
	return Table, fmt.Errorf("unknown trail mode %q (want table, tree or expression)", s)
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	return []Mode{Table, Tree, Expression}
}

// Render is shorthand for m.Renderer().Render(src, id).
func Render(src Source, id record.ID, m Mode) (string, bool) {
	return m.Renderer().Render(src, id)
}

// labelExpression fills rec's template with the labels of its parents.
// Unlabeled parents show as "#<id>" and literal parents as their value.
func labelExpression(src Source, rec *record.Record) string {
	if rec.NParents == 0 {
		if rec.Template == "" {
			return rec.DisplayLabel()
		}
		return strings.ReplaceAll(rec.Template, "{}", rec.DisplayLabel())
	}
	args := make([]string, rec.NParents)
	for i, p := range rec.ParentIDs() {
		switch {
		case p == record.NoID:
			args[i] = record.FormatValue(rec.Args[i])
		case p == rec.ID:
			args[i] = rec.DisplayLabel()
		default:
			if parent, ok := src.Get(p); ok {
				args[i] = parent.DisplayLabel()
			} else {
				args[i] = "#" + p.String()
			}
		}
	}
	return record.Interpolate(rec.Template, args)
}

// nodeLine renders "id = label = expr", dropping the label when absent.
func nodeLine(rec *record.Record) string {
	if rec.Label == "" {
		return rec.ID.String() + " = " + rec.Expression()
	}
	return rec.ID.String() + " = " + rec.Label + " = " + rec.Expression()
}
