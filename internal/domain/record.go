package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampField is the field appended to every record at construction time.
const TimestampField = "timestamp"

// Field is a single name/value pair of a submission record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is the insertion-ordered set of answers delivered by one submission.
// It is immutable once built; accessors hand out copies.
type Record struct {
	id     uuid.UUID
	fields []Field
}

// NewRecord copies fields, appends the timestamp field and assigns a new id.
func NewRecord(fields []Field, now time.Time, loc *time.Location) Record {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Field, 0, len(fields)+1)
	out = append(out, fields...)
	out = append(out, Field{Name: TimestampField, Value: FormatTimestamp(now, loc)})
	return Record{id: uuid.New(), fields: out}
}

// RestoreRecord rebuilds an archived record without touching its fields.
func RestoreRecord(id uuid.UUID, fields []Field) Record {
	out := make([]Field, len(fields))
	copy(out, fields)
	return Record{id: id, fields: out}
}

func (r Record) ID() uuid.UUID { return r.id }

func (r Record) Len() int { return len(r.fields) }

// Fields returns a copy of the fields in insertion order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the first value stored under name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Encode renders the record as an application/x-www-form-urlencoded string,
// keeping field order. extra pairs are appended after the record fields.
func (r Record) Encode(extra ...Field) string {
	return EncodeFields(append(r.Fields(), extra...))
}

// EncodeFields urlencodes fields without reordering them, unlike url.Values.
func EncodeFields(fields []Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	return sb.String()
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}
