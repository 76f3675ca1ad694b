package services

import (
	"sort"
	"time"

	"healthcare-analytics/models"
	"healthcare-analytics/utils"
)

// Cleaner removes exact duplicates from typed records, accounts for nulls and
// applies the configured null policy.
type Cleaner struct {
	policy models.Policy
	logger *utils.Logger
	now    func() time.Time
}

// NewCleaner creates a Cleaner with the given policy and logger.
func NewCleaner(policy models.Policy, logger *utils.Logger) *Cleaner {
	return &Cleaner{policy: policy, logger: logger, now: time.Now}
}

// Clean deduplicates records and returns the cleaned set together with a
// report carrying the validator's missing columns and cast failure counts.
// The input slice and its records are left untouched.
func (c *Cleaner) Clean(records []*models.Record, missingColumns []string, castFailures map[string]int) ([]*models.Record, *models.CleaningReport) {
	report := &models.CleaningReport{
		MissingColumns:       append([]string{}, missingColumns...),
		ColumnsWithNullCount: make(map[string]int, len(c.policy.MandatoryFields)),
		CastFailures:         make(map[string]int),
		InputRecords:         len(records),
		NullPolicy:           c.policy.NullPolicy,
		CreatedAt:            c.now().UTC(),
	}
	for _, f := range c.policy.MandatoryFields {
		report.ColumnsWithNullCount[f.Name] = 0
	}
	for field, n := range castFailures {
		report.CastFailures[field] = n
	}

	seen := utils.NewKeySet()
	deduped := make([]*models.Record, 0, len(records))
	for _, r := range records {
		if !seen.Add(r.Key()) {
			report.DuplicateRecords++
			continue
		}
		deduped = append(deduped, r)
	}
	if report.DuplicateRecords > 0 {
		c.logger.Info("[cleaner] %d duplicate records removed", report.DuplicateRecords)
	}

	for _, r := range deduped {
		for _, f := range c.policy.MandatoryFields {
			if r.IsNull(f.Name) {
				report.ColumnsWithNullCount[f.Name]++
			}
		}
	}

	var cleaned []*models.Record
	switch c.policy.NullPolicy {
	case models.NullDrop:
		cleaned = c.dropNulls(deduped)
	case models.NullImpute:
		cleaned = c.impute(deduped)
	default:
		cleaned = deduped
	}

	report.CleanedRecords = len(cleaned)
	report.DroppedRecords = len(deduped) - len(cleaned)

	c.logger.Info("[cleaner] Cleaned %d → %d records (duplicates %d, dropped %d, policy %s)",
		len(records), len(cleaned), report.DuplicateRecords, report.DroppedRecords, c.policy.NullPolicy)
	return cleaned, report
}

func (c *Cleaner) dropNulls(records []*models.Record) []*models.Record {
	out := make([]*models.Record, 0, len(records))
next:
	for _, r := range records {
		for _, f := range c.policy.MandatoryFields {
			if r.IsNull(f.Name) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// impute drops records without a patient id, fills null ages with the median
// age and null diagnosis dates with the latest date. Filled records are copies.
func (c *Cleaner) impute(records []*models.Record) []*models.Record {
	var ages []int
	var latest *time.Time
	for _, r := range records {
		if r.PatientID == nil {
			continue
		}
		if r.Age != nil {
			ages = append(ages, *r.Age)
		}
		if r.DiagnosisDate != nil && (latest == nil || r.DiagnosisDate.After(*latest)) {
			latest = r.DiagnosisDate
		}
	}
	median, hasMedian := medianAge(ages)
	if hasMedian {
		c.logger.Debug("[cleaner] age median: %d", median)
	}
	if latest != nil {
		c.logger.Debug("[cleaner] latest diagnosis date: %s", latest.Format(models.DateLayout))
	}

	out := make([]*models.Record, 0, len(records))
	for _, r := range records {
		if r.PatientID == nil {
			continue
		}
		if (r.Age == nil && hasMedian) || (r.DiagnosisDate == nil && latest != nil) {
			r = r.Clone()
			if r.Age == nil && hasMedian {
				r.Age = models.Ptr(median)
			}
			if r.DiagnosisDate == nil && latest != nil {
				r.DiagnosisDate = models.Ptr(*latest)
			}
		}
		out = append(out, r)
	}
	return out
}

// medianAge returns the lower median, so the result is always an observed age.
func medianAge(ages []int) (int, bool) {
	if len(ages) == 0 {
		return 0, false
	}
	sorted := append([]int(nil), ages...)
	sort.Ints(sorted)
	return sorted[(len(sorted)-1)/2], true
}
