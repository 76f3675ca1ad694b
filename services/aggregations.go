package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"healthcare-analytics/models"
)

// The transforms below are pure: they read the cleaned records and return a
// freshly allocated view. Empty input yields an empty, non-nil slice.

// diseaseIndex resolves the display description for every diagnosis code as
// the smallest non-null description seen for it.
type diseaseIndex map[string]string

func indexDiseases(records []*models.Record) diseaseIndex {
	idx := make(diseaseIndex)
	for _, r := range records {
		code := label(r.DiagnosisCode)
		desc, ok := idx[code]
		if r.DiagnosisDescription == nil {
			if !ok {
				idx[code] = ""
			}
			continue
		}
		if !ok || desc == "" || *r.DiagnosisDescription < desc {
			idx[code] = *r.DiagnosisDescription
		}
	}
	for code, desc := range idx {
		if desc == "" {
			idx[code] = models.Unknown
		}
	}
	return idx
}

// GenderRatio counts records per (disease, gender) and the share of each
// gender within the disease.
func GenderRatio(records []*models.Record) []models.GenderRatioRow {
	diseases := indexDiseases(records)
	totals := make(map[string]int)
	counts := make(map[string]map[string]int)
	for _, r := range records {
		code := label(r.DiagnosisCode)
		totals[code]++
		if counts[code] == nil {
			counts[code] = make(map[string]int)
		}
		counts[code][label(r.Gender)]++
	}

	rows := make([]models.GenderRatioRow, 0, len(counts)*2)
	for _, code := range sortedKeys(counts) {
		byGender := counts[code]

		var mf *float64
		if m, f := byGender["M"], byGender["F"]; m > 0 && f > 0 {
			mf = models.Ptr(round2(float64(m) / float64(f)))
		}

		for _, gender := range sortedKeys(byGender) {
			n := byGender[gender]
			rows = append(rows, models.GenderRatioRow{
				DiagnosisCode:        code,
				DiagnosisDescription: diseases[code],
				Gender:               gender,
				Count:                n,
				Ratio:                float64(n) / float64(totals[code]),
				MaleToFemale:         mf,
			})
		}
	}
	return rows
}

// TopDiseases ranks diseases by record count, descending, and keeps the first
// n. Equal counts are ordered by ascending diagnosis code.
func TopDiseases(records []*models.Record, n int) []models.TopDiseaseRow {
	diseases := indexDiseases(records)
	counts := make(map[string]int)
	for _, r := range records {
		counts[label(r.DiagnosisCode)]++
	}

	rows := make([]models.TopDiseaseRow, 0, len(counts))
	for code, c := range counts {
		rows = append(rows, models.TopDiseaseRow{
			DiagnosisCode:        code,
			DiagnosisDescription: diseases[code],
			Count:                c,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].DiagnosisCode < rows[j].DiagnosisCode
	})

	if n < 0 {
		n = 0
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// AgeBuckets maps ages onto the decade labels of a policy.
type AgeBuckets struct {
	floor, width, count int
	below               string
	labels              []string
	above               string
}

// NewAgeBuckets builds the bucket layout: the first bucket is
// [floor, floor+width], each following bucket i covers
// [floor+i*width+1, floor+(i+1)*width]. Ages under the floor fall into the
// below-range label and ages past the last bucket into "<upper>+".
func NewAgeBuckets(p models.Policy) AgeBuckets {
	b := AgeBuckets{
		floor: p.AgeBucketFloor,
		width: p.AgeBucketWidth,
		count: p.AgeBucketCount,
		below: p.BelowRangeLabel,
	}
	if b.below == "" {
		b.below = "below " + strconv.Itoa(b.floor)
	}
	for i := 0; i < b.count; i++ {
		lo := b.floor + i*b.width
		if i > 0 {
			lo++
		}
		hi := b.floor + (i+1)*b.width
		b.labels = append(b.labels, fmt.Sprintf("%d-%d", lo, hi))
	}
	b.above = strconv.Itoa(b.upper()) + "+"
	return b
}

func (b AgeBuckets) upper() int { return b.floor + b.count*b.width }

// Label returns the bucket label for age.
func (b AgeBuckets) Label(age *int) string {
	if age == nil {
		return models.Unknown
	}
	a := *age
	switch {
	case a < b.floor:
		return b.below
	case a > b.upper():
		return b.above
	case a <= b.floor+b.width:
		return b.labels[0]
	}
	return b.labels[(a-b.floor-1)/b.width]
}

// Order lists every label in presentation order.
func (b AgeBuckets) Order() []string {
	order := make([]string, 0, len(b.labels)+3)
	order = append(order, b.below)
	order = append(order, b.labels...)
	return append(order, b.above, models.Unknown)
}

// AgeCategory counts records per (age bucket, disease).
func AgeCategory(records []*models.Record, buckets AgeBuckets) []models.AgeCategoryRow {
	diseases := indexDiseases(records)
	type cell struct{ group, code string }
	counts := make(map[cell]int)
	for _, r := range records {
		counts[cell{buckets.Label(r.Age), label(r.DiagnosisCode)}]++
	}

	rank := make(map[string]int)
	for i, l := range buckets.Order() {
		rank[l] = i
	}

	rows := make([]models.AgeCategoryRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, models.AgeCategoryRow{
			AgeGroup:             k.group,
			DiagnosisCode:        k.code,
			DiagnosisDescription: diseases[k.code],
			Count:                n,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if rank[a.AgeGroup] != rank[b.AgeGroup] {
			return rank[a.AgeGroup] < rank[b.AgeGroup]
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.DiagnosisCode < b.DiagnosisCode
	})
	return rows
}

// SeniorFlag annotates every record with is_senior = age >= seniorAge.
// Records without an age are not seniors. Input order is preserved.
func SeniorFlag(records []*models.Record, seniorAge int) []models.SeniorFlagRow {
	rows := make([]models.SeniorFlagRow, 0, len(records))
	for _, r := range records {
		c := r.Clone()
		senior := c.Age != nil && *c.Age >= seniorAge
		flag := "N"
		if senior {
			flag = "Y"
		}
		rows = append(rows, models.SeniorFlagRow{
			PatientID:            c.PatientID,
			Age:                  c.Age,
			Gender:               c.Gender,
			DiagnosisCode:        c.DiagnosisCode,
			DiagnosisDescription: c.DiagnosisDescription,
			DiagnosisDate:        c.DiagnosisDate,
			IsSenior:             senior,
			SeniorCitizenFlag:    flag,
			Extra:                c.Extra,
		})
	}
	return rows
}

// WeeklyTrend counts records per (disease, weekday). Dates from different
// calendar weeks land in the same weekday bucket.
func WeeklyTrend(records []*models.Record) []models.WeeklyTrendRow {
	diseases := indexDiseases(records)
	type cell struct {
		code string
		day  int
	}
	counts := make(map[cell]int)
	for _, r := range records {
		counts[cell{label(r.DiagnosisCode), isoWeekday(r.DiagnosisDate)}]++
	}

	rows := make([]models.WeeklyTrendRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, models.WeeklyTrendRow{
			DiagnosisCode:        k.code,
			DiagnosisDescription: diseases[k.code],
			DayOfWeek:            weekdayName(k.day),
			DayNumber:            k.day,
			Count:                n,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DiagnosisCode != rows[j].DiagnosisCode {
			return rows[i].DiagnosisCode < rows[j].DiagnosisCode
		}
		return rows[i].DayNumber < rows[j].DayNumber
	})
	return rows
}

// isoWeekday returns Monday=1 ... Sunday=7, or 0 for a null date.
func isoWeekday(d *time.Time) int {
	if d == nil {
		return 0
	}
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func weekdayName(day int) string {
	if day == 0 {
		return models.Unknown
	}
	return time.Weekday(day % 7).String()
}

func label(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return models.Unknown
	}
	return *s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
