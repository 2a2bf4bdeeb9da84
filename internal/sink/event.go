package sink

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/lineage/internal/record"
)

// Event is the external form of one registered record.
type Event struct {
	// Process identifies the producing process. Ids are only unique within
	// one process.
	Process   string    `json:"process"`
	ID        int64     `json:"id"`
	Label     string    `json:"label,omitempty"`
	Template  string    `json:"template,omitempty"`
	Value     Float     `json:"value"`
	Parents   []Parent  `json:"parents,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Parent is one parent reference with the value captured at registration.
type Parent struct {
	ID    int64 `json:"id"`
	Value Float `json:"value"`
}

// Float is a float64 that survives JSON round trips when it is NaN or
// infinite; those encode as strings.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(record.FormatValue(v))
	}
	return []byte(record.FormatValue(v)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse value %q: %w", s, err)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// NewProcessID returns a fresh, time-ordered process identifier.
func NewProcessID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewEvent converts rec. Text fields are normalized to NFC so events from
// different platforms compare equal.
func NewEvent(process string, rec *record.Record, at time.Time) *Event {
	ev := &Event{
		Process:   process,
		ID:        int64(rec.ID),
		Label:     norm.NFC.String(rec.Label),
		Template:  norm.NFC.String(rec.Template),
		Value:     Float(rec.Value),
		Origin:    norm.NFC.String(rec.Origin),
		Timestamp: at.UTC(),
	}
	if rec.NParents > 0 {
		ev.Parents = make([]Parent, rec.NParents)
		for i := range ev.Parents {
			ev.Parents[i] = Parent{ID: int64(rec.Parents[i]), Value: Float(rec.Args[i])}
		}
	}
	return ev
}

// Record converts the event back into a record.
func (e *Event) Record() (*record.Record, error) {
	parents := make([]record.Ref, len(e.Parents))
	for i, p := range e.Parents {
		parents[i] = record.Ref{ID: record.ID(p.ID), Value: float64(p.Value)}
	}
	return record.New(record.ID(e.ID), float64(e.Value), e.Label, e.Template, e.Origin, parents)
}

// LatestProcess returns the process of the last event, or "" when there are
// none.
func LatestProcess(events []*Event) string {
	if len(events) == 0 {
		return ""
	}
	return events[len(events)-1].Process
}

// Records converts the events belonging to process. An empty process
// selects every event.
func Records(events []*Event, process string) ([]*record.Record, error) {
	var recs []*record.Record
	for _, ev := range events {
		if process != "" && ev.Process != process {
			continue
		}
		rec, err := ev.Record()
		if err != nil {
			return nil, fmt.Errorf("event %s/%d: %w", ev.Process, ev.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
