package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"healthcare-analytics/models"
	"healthcare-analytics/utils"
)

// maxLoggedCastErrors caps how many individual cast failures reach the log.
const maxLoggedCastErrors = 5

var (
	errNotInteger = errors.New("not an integer")
	errNegative   = errors.New("negative value")
	errNotDate    = errors.New("unrecognised date")

	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		time.RFC3339,
	}
)

// ValidationResult is the output of one schema validation pass.
type ValidationResult struct {
	Records        []*models.Record
	MissingColumns []string
	CastErrors     []*CastError
}

// CastFailures counts cast errors per field.
func (v *ValidationResult) CastFailures() map[string]int {
	counts := make(map[string]int)
	for _, ce := range v.CastErrors {
		counts[ce.Field]++
	}
	return counts
}

// Validator enforces the mandatory schema and casts raw values to their declared types.
type Validator struct {
	policy models.Policy
	logger *utils.Logger
}

// NewValidator creates a Validator bound to the given policy.
func NewValidator(policy models.Policy, logger *utils.Logger) *Validator {
	return &Validator{policy: policy, logger: logger}
}

// Validate checks the batch schema and casts every row. When mandatory
// columns are missing, MissingColumns is populated and no rows are cast.
func (v *Validator) Validate(batch models.RawBatch) *ValidationResult {
	result := &ValidationResult{}

	// an empty batch carries no schema to check
	if len(batch.Columns) == 0 && len(batch.Rows) == 0 {
		result.Records = []*models.Record{}
		return result
	}

	schema := batch.Schema()
	for _, f := range v.policy.MandatoryFields {
		if _, ok := schema[f.Name]; !ok {
			result.MissingColumns = append(result.MissingColumns, f.Name)
		}
	}
	if len(result.MissingColumns) > 0 {
		v.logger.Error("[validator] %s is missing mandatory columns: %s",
			sourceName(batch), strings.Join(result.MissingColumns, ", "))
		return result
	}
	v.logger.Info("[validator] Mandatory columns verified for %s", sourceName(batch))

	// core fields are cast whenever the batch carries them, mandatory or
	// not; every other column travels in Extra
	var typed []models.FieldSpec
	for _, f := range models.DefaultMandatoryFields() {
		if _, ok := schema[f.Name]; ok {
			typed = append(typed, f)
		}
	}

	result.Records = make([]*models.Record, 0, len(batch.Rows))
	for i, row := range batch.Rows {
		rec := &models.Record{}
		for _, f := range typed {
			raw, ok := row[f.Name]
			if !ok {
				continue
			}
			if err := assign(rec, f, raw); err != nil {
				ce := &CastError{Row: i, Field: f.Name, Value: raw, Err: err}
				result.CastErrors = append(result.CastErrors, ce)
				if len(result.CastErrors) <= maxLoggedCastErrors {
					v.logger.Warn("[validator] %v", ce)
				}
			}
		}
		for k, val := range row {
			if models.IsCoreField(k) {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[k] = val
		}
		result.Records = append(result.Records, rec)
	}

	v.logger.Info("[validator] Cast %d rows to typed records (%d cast failures)",
		len(result.Records), len(result.CastErrors))
	return result
}

// assign casts raw and stores it on the matching field of rec. Blank values
// are nulls, not cast failures.
func assign(rec *models.Record, f models.FieldSpec, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	switch f.Type {
	case models.TypeInteger:
		n, err := parseInteger(raw)
		if err != nil {
			return err
		}
		return setInt(rec, f.Name, n)
	case models.TypeDate:
		d, err := parseDate(raw)
		if err != nil {
			return err
		}
		return setDate(rec, f.Name, d)
	default:
		return setString(rec, f.Name, raw)
	}
}

func parseInteger(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		fl, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(fl) || math.IsInf(fl, 0) || fl != math.Trunc(fl) {
			return 0, errNotInteger
		}
		n = int(fl)
	}
	if n < 0 {
		return 0, errNegative
	}
	return n, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errNotDate
}

func setString(rec *models.Record, field, v string) error {
	switch field {
	case models.FieldPatientID:
		rec.PatientID = &v
	case models.FieldGender:
		rec.Gender = &v
	case models.FieldDiagnosisCode:
		rec.DiagnosisCode = &v
	case models.FieldDiagnosisDescription:
		rec.DiagnosisDescription = &v
	default:
		return fmt.Errorf("field %s is not a string field", field)
	}
	return nil
}

func setInt(rec *models.Record, field string, v int) error {
	if field != models.FieldAge {
		return fmt.Errorf("field %s is not an integer field", field)
	}
	rec.Age = &v
	return nil
}

func setDate(rec *models.Record, field string, v time.Time) error {
	if field != models.FieldDiagnosisDate {
		return fmt.Errorf("field %s is not a date field", field)
	}
	rec.DiagnosisDate = &v
	return nil
}

func sourceName(batch models.RawBatch) string {
	if batch.Source == "" {
		return "batch"
	}
	return batch.Source
}
