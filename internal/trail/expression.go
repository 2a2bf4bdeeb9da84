package trail

import "github.com/roach88/lineage/internal/record"

type expression struct{}

// Render prints "id = expr" for the terminal record only.
func (expression) Render(src Source, id record.ID) (string, bool) {
	rec, ok := src.Get(id)
	if !ok {
		return "", false
	}
	return id.String() + " = " + rec.Expression() + "\n", true
}
