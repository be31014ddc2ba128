package service

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyevr/timetrack/internal/model"
)

func completedEntry(projectID, taskID uint64, hours, rate float64) model.TimeEntry {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(hours * float64(time.Hour)))
	return model.TimeEntry{
		ProjectID:   projectID,
		TaskID:      taskID,
		Description: "backend work",
		StartTime:   start,
		EndTime:     &end,
		HourlyRate:  rate,
		Status:      model.EntryApproved,
	}
}

func TestBuildReportTotals(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	entries := []model.TimeEntry{
		completedEntry(1, 1, 2, 50),    // 100.00
		completedEntry(1, 2, 1.5, 40),  // 60.00
	}
	running := completedEntry(1, 1, 3, 50)
	running.EndTime = nil
	entries = append(entries, running)

	rep := BuildReport(from, to, entries, map[uint64]string{1: "Apollo"}, map[uint64]string{1: "api", 2: "docs"})
	assert.Equal(t, 3.5, rep.TotalHours)
	assert.Equal(t, 160.0, rep.TotalCost)
}

func TestReportCSV(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	running := completedEntry(1, 2, 1, 50)
	running.EndTime = nil
	entries := []model.TimeEntry{completedEntry(1, 1, 2, 50), running}

	rep := BuildReport(from, to, entries, map[uint64]string{1: "Apollo"}, map[uint64]string{1: "api", 2: "docs"})
	doc, err := rep.CSV()
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(doc)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 2 entries + totals

	assert.Equal(t, []string{"date", "project", "task", "description", "status", "hours", "cost"}, rows[0])
	assert.Equal(t, []string{"2025-03-10", "Apollo", "api", "backend work", "approved", "2.00", "100.00"}, rows[1])

	// The running timer shows a placeholder and zero cost.
	assert.Equal(t, "in progress", rows[2][5])
	assert.Equal(t, "0.00", rows[2][6])

	total := rows[3]
	assert.Equal(t, "total", total[0])
	assert.Equal(t, "2.00", total[5])
	assert.Equal(t, "100.00", total[6])
}

func TestReportFilename(t *testing.T) {
	rep := Report{}
	name := rep.Filename()
	assert.True(t, strings.HasPrefix(name, "timesheet-report-"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}
