package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Mandatory field names of a healthcare event.
const (
	FieldPatientID            = "patient_id"
	FieldAge                  = "age"
	FieldGender               = "gender"
	FieldDiagnosisCode        = "diagnosis_code"
	FieldDiagnosisDescription = "diagnosis_description"
	FieldDiagnosisDate        = "diagnosis_date"
)

// DateLayout is the canonical rendering of a diagnosis date.
const DateLayout = "2006-01-02"

// RawRow holds one unprocessed row exactly as read from the source file.
type RawRow map[string]string

// RawBatch is a finite batch of raw rows plus the header that came with it.
// Columns is the schema-level truth; when empty the schema is the union of row keys.
type RawBatch struct {
	Source  string
	Columns []string
	Rows    []RawRow
}

// Schema returns the set of column names present in the batch.
func (b RawBatch) Schema() map[string]struct{} {
	schema := make(map[string]struct{}, len(b.Columns))
	if len(b.Columns) > 0 {
		for _, c := range b.Columns {
			schema[c] = struct{}{}
		}
		return schema
	}
	for _, row := range b.Rows {
		for k := range row {
			schema[k] = struct{}{}
		}
	}
	return schema
}

// Record is one typed patient-diagnosis event. A nil field is a null value.
type Record struct {
	PatientID            *string           `json:"patient_id" bson:"patient_id"`
	Age                  *int              `json:"age" bson:"age"`
	Gender               *string           `json:"gender" bson:"gender"`
	DiagnosisCode        *string           `json:"diagnosis_code" bson:"diagnosis_code"`
	DiagnosisDescription *string           `json:"diagnosis_description" bson:"diagnosis_description"`
	DiagnosisDate        *time.Time        `json:"diagnosis_date" bson:"diagnosis_date"`
	Extra                map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// IsCoreField reports whether field is one of the six typed record fields.
func IsCoreField(field string) bool {
	switch field {
	case FieldPatientID, FieldAge, FieldGender,
		FieldDiagnosisCode, FieldDiagnosisDescription, FieldDiagnosisDate:
		return true
	}
	return false
}

// IsNull reports whether the named field is null on r. Fields outside the
// typed core are looked up in Extra, where a blank value counts as null.
func (r *Record) IsNull(field string) bool {
	switch field {
	case FieldPatientID:
		return r.PatientID == nil
	case FieldAge:
		return r.Age == nil
	case FieldGender:
		return r.Gender == nil
	case FieldDiagnosisCode:
		return r.DiagnosisCode == nil
	case FieldDiagnosisDescription:
		return r.DiagnosisDescription == nil
	case FieldDiagnosisDate:
		return r.DiagnosisDate == nil
	}
	return strings.TrimSpace(r.Extra[field]) == ""
}

// Key renders every field of r into a single comparable string. Two records
// are exact duplicates iff their keys are equal. Every value is length
// prefixed so no field content can shift into its neighbour.
func (r *Record) Key() string {
	b := make([]byte, 0, 128)
	b = appendNullable(b, r.PatientID)
	if r.Age == nil {
		b = append(b, 0)
	} else {
		b = appendField(append(b, 1), strconv.Itoa(*r.Age))
	}
	b = appendNullable(b, r.Gender)
	b = appendNullable(b, r.DiagnosisCode)
	b = appendNullable(b, r.DiagnosisDescription)
	if r.DiagnosisDate == nil {
		b = append(b, 0)
	} else {
		b = appendField(append(b, 1), r.DiagnosisDate.Format(DateLayout))
	}

	b = strconv.AppendInt(b, int64(len(r.Extra)), 10)
	b = append(b, ':')
	for _, k := range r.ExtraKeys() {
		b = appendField(b, k)
		b = appendField(b, r.Extra[k])
	}
	return string(b)
}

// ExtraKeys returns the pass-through column names of r in sorted order.
func (r *Record) ExtraKeys() []string {
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExtraFields returns the pass-through columns written after Columns.
func (r *Record) ExtraFields() map[string]string { return r.Extra }

// Clone returns a copy of r that shares no pointers with it.
func (r *Record) Clone() *Record {
	c := &Record{
		PatientID:            cloneString(r.PatientID),
		Gender:               cloneString(r.Gender),
		DiagnosisCode:        cloneString(r.DiagnosisCode),
		DiagnosisDescription: cloneString(r.DiagnosisDescription),
	}
	if r.Age != nil {
		age := *r.Age
		c.Age = &age
	}
	if r.DiagnosisDate != nil {
		d := *r.DiagnosisDate
		c.DiagnosisDate = &d
	}
	if r.Extra != nil {
		c.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

func (r *Record) Columns() []string {
	return []string{
		FieldPatientID, FieldAge, FieldGender,
		FieldDiagnosisCode, FieldDiagnosisDescription, FieldDiagnosisDate,
	}
}

func (r *Record) Values() []string {
	return []string{
		StringOr(r.PatientID, ""),
		IntOr(r.Age, ""),
		StringOr(r.Gender, ""),
		StringOr(r.DiagnosisCode, ""),
		StringOr(r.DiagnosisDescription, ""),
		DateOr(r.DiagnosisDate, ""),
	}
}

// StringOr dereferences s or returns fallback when s is nil.
func StringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// IntOr formats n or returns fallback when n is nil.
func IntOr(n *int, fallback string) string {
	if n == nil {
		return fallback
	}
	return strconv.Itoa(*n)
}

// DateOr formats d with DateLayout or returns fallback when d is nil.
func DateOr(d *time.Time, fallback string) string {
	if d == nil {
		return fallback
	}
	return d.Format(DateLayout)
}

// Ptr returns a pointer to v. Handy for building records in code and tests.
func Ptr[T any](v T) *T { return &v }

func appendNullable(b []byte, s *string) []byte {
	if s == nil {
		return append(b, 0)
	}
	return appendField(append(b, 1), *s)
}

// appendField writes s as <len>:<s>.
func appendField(b []byte, s string) []byte {
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, ':')
	return append(b, s...)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
