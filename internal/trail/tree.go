package trail

import (
	"strings"

	"github.com/roach88/lineage/internal/record"
)

const indent = "    "

type tree struct{}

type treeWalk struct {
	src    Source
	b      strings.Builder
	onPath map[record.ID]bool
}

// Render prints the lineage of id depth first, each dependency subtree
// ahead of the node that consumed it. Render reports false only for NoID.
func (tree) Render(src Source, id record.ID) (string, bool) {
	if id == record.NoID {
		return "", false
	}
	w := &treeWalk{src: src, onPath: make(map[record.ID]bool)}
	w.visit(id, 0)
	return w.b.String(), true
}

func (w *treeWalk) visit(id record.ID, depth int) {
	rec, ok := w.src.Get(id)
	if !ok {
		w.line(depth, "unable to find "+id.String())
		return
	}
	if w.onPath[id] {
		w.line(depth, "cycle to "+id.String())
		return
	}
	w.onPath[id] = true
	for _, p := range rec.ParentIDs() {
		switch p {
		case id:
			w.line(depth+1, nodeLine(rec))
		case record.NoID:
		default:
			w.visit(p, depth+1)
		}
	}
	delete(w.onPath, id)
	w.line(depth, nodeLine(rec))
}

func (w *treeWalk) line(depth int, text string) {
	for i := 0; i < depth; i++ {
		w.b.WriteString(indent)
	}
	w.b.WriteString(text)
	w.b.WriteByte('\n')
}
