package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies one registration. IDs are allocated from a process-wide
// monotonic counter starting at 1.
type ID int64

const (
	// NoID marks an absent parent: a literal constant with nothing to traverse.
	NoID ID = 0

	// SelfID is accepted by New in place of the id being registered, so a
	// record can list itself as a parent (accumulators).
	SelfID ID = -1

	// MaxParents is the fixed upper bound on parents per record.
	MaxParents = 7

	// UndefinedLabel is the label given to placeholders for missing records.
	UndefinedLabel = "undefined"
)

// String returns the decimal form of the id.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Ref is the handle application code holds for an audited value: the value
// itself plus the id it was registered under.
type Ref struct {
	ID    ID
	Value float64
}

// Self is the parent reference a record uses to point at itself.
var Self = Ref{ID: SelfID}

// Literal wraps a constant that was never registered.
func Literal(v float64) Ref {
	return Ref{ID: NoID, Value: v}
}

// Float returns the wrapped value.
func (r Ref) Float() float64 {
	return r.Value
}

// Record is an immutable descriptor of one audited value.
//
// Records are built once by New and never mutated after they are handed to
// a store. Parents and Args hold NParents entries each; Args carries the
// value each parent had when this record was registered.
type Record struct {
	ID       ID
	Label    string
	Template string
	Value    float64
	Origin   string

	// Index is the slot the record occupies in its store. Placeholders
	// synthesized for missing records carry -1.
	Index int

	NParents uint8
	Parents  [MaxParents]ID
	Args     [MaxParents]float64
}

// ArityError reports a registration with more parents than MaxParents.
type ArityError struct {
	ID    ID
	Count int
}

// Error implements the error interface.
func (e *ArityError) Error() string {
	return fmt.Sprintf("record %d: %d parents exceeds maximum of %d", e.ID, e.Count, MaxParents)
}

// IsArityError returns true if err is, or wraps, an *ArityError.
func IsArityError(err error) bool {
	var ae *ArityError
	return errors.As(err, &ae)
}

// New builds a record. Parent entries equal to SelfID are rewritten to id and
// take the record's own value. More than MaxParents parents is an error;
// parents are never truncated.
func New(id ID, value float64, label, template, origin string, parents []Ref) (*Record, error) {
	if len(parents) > MaxParents {
		return nil, &ArityError{ID: id, Count: len(parents)}
	}
	r := &Record{
		ID:       id,
		Label:    label,
		Template: template,
		Value:    value,
		Origin:   origin,
		NParents: uint8(len(parents)),
	}
	for i, p := range parents {
		if p.ID == SelfID {
			r.Parents[i] = id
			r.Args[i] = value
			continue
		}
		r.Parents[i] = p.ID
		r.Args[i] = p.Value
	}
	return r, nil
}

// Placeholder returns the record rendered in place of an id that could not
// be found.
func Placeholder(id ID) *Record {
	return &Record{ID: id, Label: UndefinedLabel, Index: -1}
}

// ParentIDs returns the used prefix of Parents.
func (r *Record) ParentIDs() []ID {
	return r.Parents[:r.NParents]
}

// ParentArgs returns the used prefix of Args.
func (r *Record) ParentArgs() []float64 {
	return r.Args[:r.NParents]
}

// IsPlaceholder reports whether r stands in for a missing record.
func (r *Record) IsPlaceholder() bool {
	return r.Index < 0
}

// IsSelf reports whether parent i refers back to r.
func (r *Record) IsSelf(i int) bool {
	return r.Parents[i] == r.ID
}

// Expression returns the template with each placeholder replaced by the
// corresponding parent value. A record without parents renders its own value.
func (r *Record) Expression() string {
	if r.NParents == 0 {
		v := FormatValue(r.Value)
		if r.Template == "" {
			return v
		}
		return strings.ReplaceAll(r.Template, "{}", v)
	}
	args := make([]string, r.NParents)
	for i := range args {
		args[i] = FormatValue(r.Args[i])
	}
	return Interpolate(r.Template, args)
}

// DisplayLabel returns the label, or "#<id>" when the record has none.
func (r *Record) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return "#" + r.ID.String()
}

// OriginText returns Origin, or "Unknown" when none was captured.
func (r *Record) OriginText() string {
	if r.Origin == "" {
		return "Unknown"
	}
	return r.Origin
}

// Interpolate replaces "{}" placeholders left to right with args. Surplus
// placeholders are kept literally and surplus args are ignored.
func Interpolate(template string, args []string) string {
	if len(args) == 0 {
		return template
	}
	var b strings.Builder
	b.Grow(len(template) + 8*len(args))
	next := 0
	rest := template
	for {
		i := strings.Index(rest, "{}")
		if i < 0 || next >= len(args) {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i])
		b.WriteString(args[next])
		next++
		rest = rest[i+2:]
	}
}

// FormatValue renders a float in its shortest round-tripping form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
