package models

import (
	"testing"
	"time"
)

func sampleRecord() *Record {
	d := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	return &Record{
		PatientID:            Ptr("P1"),
		Age:                  Ptr(41),
		Gender:               Ptr("M"),
		DiagnosisCode:        Ptr("D1"),
		DiagnosisDescription: Ptr("Diabetes"),
		DiagnosisDate:        &d,
		Extra:                map[string]string{"ward": "4B"},
	}
}

func TestRecordKeyDistinguishesNullFromEmpty(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	if a.Key() != b.Key() {
		t.Fatal("identical records must share a key")
	}

	b.Gender = Ptr("")
	c := sampleRecord()
	c.Gender = nil
	if b.Key() == c.Key() {
		t.Error("empty string and null must not collide")
	}

	d := sampleRecord()
	d.Extra["ward"] = "5A"
	if a.Key() == d.Key() {
		t.Error("pass-through columns are part of the key")
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	a := sampleRecord()
	c := a.Clone()

	*c.Age = 99
	c.Extra["ward"] = "x"
	*c.DiagnosisDate = c.DiagnosisDate.AddDate(0, 0, 1)

	if *a.Age != 41 || a.Extra["ward"] != "4B" || a.DiagnosisDate.Day() != 1 {
		t.Errorf("clone shares state with original: %+v", a)
	}
}

func TestRecordIsNull(t *testing.T) {
	r := sampleRecord()
	r.Age = nil

	tests := []struct {
		field string
		want  bool
	}{
		{FieldPatientID, false},
		{FieldAge, true},
		{"ward", false},
		{"hospital", true},
	}
	for _, tt := range tests {
		if got := r.IsNull(tt.field); got != tt.want {
			t.Errorf("IsNull(%q) = %v; want %v", tt.field, got, tt.want)
		}
	}
}

func TestRecordValues(t *testing.T) {
	r := sampleRecord()
	r.Age = nil

	got := r.Values()
	want := []string{"P1", "", "M", "D1", "Diabetes", "2023-08-01"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %q; want %q", i, got[i], want[i])
		}
	}
	if len(r.Columns()) != len(got) {
		t.Error("columns and values differ in length")
	}
}

func TestRawBatchSchema(t *testing.T) {
	b := RawBatch{Rows: []RawRow{{"a": "1"}, {"b": "2"}}}
	if s := b.Schema(); len(s) != 2 {
		t.Errorf("schema from rows = %v; want a and b", s)
	}

	b.Columns = []string{"a"}
	if _, ok := b.Schema()["b"]; ok {
		t.Error("declared columns win over row keys")
	}
}

func TestRecordKeySeparatorsInValues(t *testing.T) {
	a := sampleRecord()
	a.DiagnosisCode = Ptr("D1")
	a.DiagnosisDescription = Ptr("x\x1f\x01y")
	b := sampleRecord()
	b.DiagnosisCode = Ptr("D1\x1f\x01x")
	b.DiagnosisDescription = Ptr("y")
	if a.Key() == b.Key() {
		t.Error("separator bytes inside a value must not shift field boundaries")
	}

	c := sampleRecord()
	c.Extra = map[string]string{"a": "b\x1ec=d"}
	d := sampleRecord()
	d.Extra = map[string]string{"a": "b", "c": "d"}
	if c.Key() == d.Key() {
		t.Error("pass-through values must not spill into other keys")
	}

	e := sampleRecord()
	e.Extra = map[string]string{"a=b": ""}
	f := sampleRecord()
	f.Extra = map[string]string{"a": "b="}
	if e.Key() == f.Key() {
		t.Error("pass-through keys and values are length prefixed")
	}
}
