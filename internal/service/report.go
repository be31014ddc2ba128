package service

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aliyevr/timetrack/internal/model"
)

// Report is an assembled set of time entries over a date range with the
// aggregate totals computed.  Rendering targets CSV; richer document
// formats (PDF) are collaborators outside this service.
type Report struct {
	From       time.Time
	To         time.Time
	Entries    []model.TimeEntry
	Projects   map[uint64]string // project id -> name, for display
	Tasks      map[uint64]string // task id -> title
	TotalHours float64
	TotalCost  float64
}

// BuildReport computes the aggregate totals over the given entries.
// In-progress entries are listed but contribute nothing to the totals.
func BuildReport(from, to time.Time, entries []model.TimeEntry, projects, tasks map[uint64]string) Report {
	r := Report{From: from, To: to, Entries: entries, Projects: projects, Tasks: tasks}
	for i := range entries {
		r.TotalHours += entries[i].DurationHours()
		r.TotalCost += entries[i].Cost()
	}
	r.TotalHours = math.Round(r.TotalHours*100) / 100
	r.TotalCost = math.Round(r.TotalCost*100) / 100
	return r
}

// Filename returns the attachment name for the report document.
func (r Report) Filename() string {
	return fmt.Sprintf("timesheet-report-%s.csv", time.Now().UTC().Format("2006-01-02"))
}

// CSV renders the report as a CSV document: one row per entry followed by
// a totals row.  In-progress entries show "in progress" in place of hours
// and cost.
func (r Report) CSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"date", "project", "task", "description", "status", "hours", "cost"}); err != nil {
		return "", err
	}
	for i := range r.Entries {
		e := &r.Entries[i]
		hours := "in progress"
		cost := "0.00"
		if !e.InProgress() {
			hours = strconv.FormatFloat(math.Round(e.DurationHours()*100)/100, 'f', 2, 64)
			cost = strconv.FormatFloat(e.Cost(), 'f', 2, 64)
		}
		rec := []string{
			e.StartTime.UTC().Format("2006-01-02"),
			r.Projects[e.ProjectID],
			r.Tasks[e.TaskID],
			e.Description,
			e.Status,
			hours,
			cost,
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	total := []string{"total", "", "", "", "",
		strconv.FormatFloat(r.TotalHours, 'f', 2, 64),
		strconv.FormatFloat(r.TotalCost, 'f', 2, 64)}
	if err := w.Write(total); err != nil {
		return "", err
	}
	w.Flush()
	return sb.String(), w.Error()
}
