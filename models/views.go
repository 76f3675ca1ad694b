package models

import (
	"strconv"
	"time"
)

// Unknown labels a null categorical value inside an aggregate.
const Unknown = "unknown"

// GenderRatioRow is one (disease, gender) cell of the gender ratio view.
type GenderRatioRow struct {
	DiagnosisCode        string   `json:"diagnosis_code" bson:"diagnosis_code"`
	DiagnosisDescription string   `json:"diagnosis_description" bson:"diagnosis_description"`
	Gender               string   `json:"gender" bson:"gender"`
	Count                int      `json:"count" bson:"count"`
	Ratio                float64  `json:"ratio" bson:"ratio"`
	MaleToFemale         *float64 `json:"male_to_female,omitempty" bson:"male_to_female,omitempty"`
}

func (r GenderRatioRow) Columns() []string {
	return []string{"diagnosis_code", "diagnosis_description", "gender", "count", "ratio", "male_to_female"}
}

func (r GenderRatioRow) Values() []string {
	mf := ""
	if r.MaleToFemale != nil {
		mf = formatFloat(*r.MaleToFemale)
	}
	return []string{r.DiagnosisCode, r.DiagnosisDescription, r.Gender,
		strconv.Itoa(r.Count), formatFloat(r.Ratio), mf}
}

// TopDiseaseRow is one ranked entry of the most-common-diseases view.
type TopDiseaseRow struct {
	Rank                 int    `json:"rank" bson:"rank"`
	DiagnosisCode        string `json:"diagnosis_code" bson:"diagnosis_code"`
	DiagnosisDescription string `json:"disease" bson:"disease"`
	Count                int    `json:"count" bson:"count"`
}

func (r TopDiseaseRow) Columns() []string {
	return []string{"rank", "diagnosis_code", "disease", "count"}
}

func (r TopDiseaseRow) Values() []string {
	return []string{strconv.Itoa(r.Rank), r.DiagnosisCode, r.DiagnosisDescription, strconv.Itoa(r.Count)}
}

// AgeCategoryRow counts one disease inside one age bucket.
type AgeCategoryRow struct {
	AgeGroup             string `json:"age_group" bson:"age_group"`
	DiagnosisCode        string `json:"diagnosis_code" bson:"diagnosis_code"`
	DiagnosisDescription string `json:"diagnosis_description" bson:"diagnosis_description"`
	Count                int    `json:"count" bson:"count"`
}

func (r AgeCategoryRow) Columns() []string {
	return []string{"age_group", "diagnosis_code", "diagnosis_description", "count"}
}

func (r AgeCategoryRow) Values() []string {
	return []string{r.AgeGroup, r.DiagnosisCode, r.DiagnosisDescription, strconv.Itoa(r.Count)}
}

// SeniorFlagRow is a cleaned record annotated with its senior status.
type SeniorFlagRow struct {
	PatientID            *string    `json:"patient_id" bson:"patient_id"`
	Age                  *int       `json:"age" bson:"age"`
	Gender               *string    `json:"gender" bson:"gender"`
	DiagnosisCode        *string    `json:"diagnosis_code" bson:"diagnosis_code"`
	DiagnosisDescription *string    `json:"diagnosis_description" bson:"diagnosis_description"`
	DiagnosisDate        *time.Time `json:"diagnosis_date" bson:"diagnosis_date"`
	IsSenior             bool       `json:"is_senior" bson:"is_senior"`
	SeniorCitizenFlag    string     `json:"senior_citizen_flag" bson:"senior_citizen_flag"`

	Extra map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

func (r SeniorFlagRow) Columns() []string {
	return []string{"patient_id", "age", "gender", "diagnosis_code", "diagnosis_description",
		"diagnosis_date", "is_senior", "senior_citizen_flag"}
}

func (r SeniorFlagRow) Values() []string {
	return []string{
		StringOr(r.PatientID, ""), IntOr(r.Age, ""), StringOr(r.Gender, ""),
		StringOr(r.DiagnosisCode, ""), StringOr(r.DiagnosisDescription, ""),
		DateOr(r.DiagnosisDate, ""), strconv.FormatBool(r.IsSenior), r.SeniorCitizenFlag,
	}
}

func (r SeniorFlagRow) ExtraFields() map[string]string { return r.Extra }

// WeeklyTrendRow counts one disease on one weekday across every week in the batch.
// DayNumber follows ISO 8601: Monday=1 ... Sunday=7, 0 for an unknown date.
type WeeklyTrendRow struct {
	DiagnosisCode        string `json:"diagnosis_code" bson:"diagnosis_code"`
	DiagnosisDescription string `json:"diagnosis_description" bson:"diagnosis_description"`
	DayOfWeek            string `json:"day_of_week" bson:"day_of_week"`
	DayNumber            int    `json:"day_number" bson:"day_number"`
	Count                int    `json:"count" bson:"count"`
}

func (r WeeklyTrendRow) Columns() []string {
	return []string{"diagnosis_code", "diagnosis_description", "day_of_week", "day_number", "count"}
}

func (r WeeklyTrendRow) Values() []string {
	return []string{r.DiagnosisCode, r.DiagnosisDescription, r.DayOfWeek,
		strconv.Itoa(r.DayNumber), strconv.Itoa(r.Count)}
}

// Aggregates bundles the five derived views of one run.
type Aggregates struct {
	GenderRatio []GenderRatioRow
	TopDiseases []TopDiseaseRow
	AgeCategory []AgeCategoryRow
	SeniorFlag  []SeniorFlagRow
	WeeklyTrend []WeeklyTrendRow
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
