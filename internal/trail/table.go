package trail

import (
	"fmt"
	"strings"

	"github.com/roach88/lineage/internal/record"
)

const (
	idWidth    = 21
	labelWidth = 13
	separator  = " = "
)

// continuation indents the second and third line of a row under the
// expression column.
var continuation = strings.Repeat(" ", idWidth+len(separator)+labelWidth) + separator

type table struct{}

// rowKey separates a node's self-reference row from its rollup row.
type rowKey struct {
	id   record.ID
	self bool
}

// rowSet is an insertion-ordered map: a key keeps the position of its first
// insert while its value is replaced by every later insert.
type rowSet struct {
	order []rowKey
	rows  map[rowKey]*record.Record
}

func (s *rowSet) put(k rowKey, rec *record.Record) {
	if _, ok := s.rows[k]; !ok {
		s.order = append(s.order, k)
	}
	s.rows[k] = rec
}

type tableWalk struct {
	src      Source
	rows     rowSet
	expanded map[record.ID]bool
}

// Render flattens the lineage of id into rows, dependencies first.
func (table) Render(src Source, id record.ID) (string, bool) {
	w := &tableWalk{
		src:      src,
		rows:     rowSet{rows: make(map[rowKey]*record.Record)},
		expanded: make(map[record.ID]bool),
	}
	w.visit(id)

	var b strings.Builder
	for _, k := range w.rows.order {
		rec := w.rows.rows[k]
		if rec.IsPlaceholder() {
			continue
		}
		writeRow(&b, src, rec)
	}
	return b.String(), true
}

// visit records every dependency of id before id's own rollup row. A
// revisited id is not expanded again; its rollup row is rewritten with the
// current lookup so the last write wins.
func (w *tableWalk) visit(id record.ID) {
	rec, ok := w.src.Get(id)
	if !ok {
		w.rows.put(rowKey{id: id}, record.Placeholder(id))
		return
	}
	if w.expanded[id] {
		w.rows.put(rowKey{id: id}, rec)
		return
	}
	w.expanded[id] = true

	self := false
	for _, p := range rec.ParentIDs() {
		switch p {
		case id:
			self = true
		case record.NoID:
		default:
			w.visit(p)
		}
	}
	if self {
		w.rows.put(rowKey{id: id, self: true}, rec)
	}
	w.rows.put(rowKey{id: id}, rec)
}

func writeRow(b *strings.Builder, src Source, rec *record.Record) {
	fmt.Fprintf(b, "%-*s%s%-*s%s%s\n", idWidth, rec.ID.String(), separator, labelWidth, rec.Label, separator, rec.Expression())
	b.WriteString(continuation)
	b.WriteString(labelExpression(src, rec))
	b.WriteByte('\n')
	b.WriteString(continuation)
	b.WriteString(rec.OriginText())
	b.WriteByte('\n')
}
