package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// SummaryPrinter renders a human-readable digest of a run to a terminal.
type SummaryPrinter struct {
	w io.Writer
}

func NewSummaryPrinter(w io.Writer) *SummaryPrinter {
	return &SummaryPrinter{w: w}
}

func (s *SummaryPrinter) Print(r *RunResult) {
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)
	rep := r.Report
	agg := r.Aggregates

	fmt.Fprintf(s.w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(s.w, "\033[1;35m  HEALTHCARE BATCH SUMMARY  (run %s)\033[0m\n", r.RunID)
	fmt.Fprintf(s.w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(s.w, "\033[1;33m  Cleaning Report\033[0m\n")
	fmt.Fprintf(s.w, "  %s\n", thin)
	fmt.Fprintf(s.w, "  Input records     : \033[1m%d\033[0m\n", rep.InputRecords)
	fmt.Fprintf(s.w, "  Duplicates removed: \033[1m%d\033[0m\n", rep.DuplicateRecords)
	fmt.Fprintf(s.w, "  Dropped (%-7s) : \033[1m%d\033[0m\n", rep.NullPolicy, rep.DroppedRecords)
	fmt.Fprintf(s.w, "  Cleaned records   : \033[1m%d\033[0m\n", rep.CleanedRecords)
	for _, field := range sortedKeys(rep.ColumnsWithNullCount) {
		if n := rep.ColumnsWithNullCount[field]; n > 0 {
			fmt.Fprintf(s.w, "  nulls in %-22s %d\n", field+":", n)
		}
	}
	fmt.Fprintln(s.w)

	fmt.Fprintf(s.w, "\033[1;33m  Most Common Diseases\033[0m\n")
	fmt.Fprintf(s.w, "  %s\n", thin)
	if len(agg.TopDiseases) == 0 {
		fmt.Fprintf(s.w, "  No diagnoses in this batch\n")
	}
	for _, d := range agg.TopDiseases {
		fmt.Fprintf(s.w, "  \033[1m%d.\033[0m %-36s \033[1;32m%d\033[0m\n",
			d.Rank, truncate(d.DiagnosisDescription, 34), d.Count)
	}
	fmt.Fprintln(s.w)

	seniors := 0
	for _, f := range agg.SeniorFlag {
		if f.IsSenior {
			seniors++
		}
	}
	fmt.Fprintf(s.w, "\033[1;33m  Senior Patients\033[0m\n")
	fmt.Fprintf(s.w, "  %s\n", thin)
	fmt.Fprintf(s.w, "  %d of %d records flagged senior\n\n", seniors, len(agg.SeniorFlag))

	fmt.Fprintf(s.w, "\033[1;33m  Cases by Weekday\033[0m\n")
	fmt.Fprintf(s.w, "  %s\n", thin)
	byDay := make(map[int]int)
	names := make(map[int]string)
	for _, t := range agg.WeeklyTrend {
		byDay[t.DayNumber] += t.Count
		names[t.DayNumber] = t.DayOfWeek
	}
	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	if len(days) == 0 {
		fmt.Fprintf(s.w, "  No dated diagnoses\n")
	}
	for _, d := range days {
		bar := strings.Repeat("█", scaled(byDay[d], 30, maxValue(byDay)))
		fmt.Fprintf(s.w, "  %-10s %s (%d)\n", names[d], bar, byDay[d])
	}

	if r.Degraded {
		fmt.Fprintf(s.w, "\n\033[1;31m  %d dataset(s) failed to store:\033[0m\n", len(r.SinkErrors))
		for _, se := range r.SinkErrors {
			fmt.Fprintf(s.w, "  - %s\n", se.Dataset)
		}
	}

	fmt.Fprintf(s.w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// scaled maps n onto [1, width] relative to max so large batches still fit.
func scaled(n, width, max int) int {
	if max <= width {
		return n
	}
	v := n * width / max
	if v == 0 && n > 0 {
		v = 1
	}
	return v
}

func maxValue(m map[int]int) int {
	max := 0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
