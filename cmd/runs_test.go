package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linkmill/partners-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ProjectID:    "abc12345-6789-0000-0000-000000000000",
			Status:       model.RunStatusComplete,
			Total:        5,
			Succeeded:    4,
			Failed:       1,
			ProcessingMS: 12500,
			CreatedAt:    now,
		},
		{
			ProjectID: "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusProcessing,
			Total:     3,
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "abc12345")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "12.5s")
	assert.Contains(t, out, "2026-08-15 10:30")
	assert.Contains(t, out, "processing")
	// A run that has not finished shows no duration.
	assert.Contains(t, out, "-")
}

func TestComputeRunStats(t *testing.T) {
	runs := []model.Run{
		{Status: model.RunStatusComplete, Total: 4, Succeeded: 4, ProcessingMS: 1000},
		{Status: model.RunStatusComplete, Total: 4, Succeeded: 3, Failed: 1, ProcessingMS: 3000},
		{Status: model.RunStatusFailed, Total: 2, Failed: 2},
		{Status: model.RunStatusProcessing, Total: 1},
	}

	s := computeRunStats(runs)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Other)
	assert.Equal(t, 11, s.ItemsTotal)
	assert.Equal(t, 7, s.ItemsSucceeded)
	assert.Equal(t, 3, s.ItemsFailed)
	assert.InDelta(t, 2000, s.AvgMS, 0.01)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgMS)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{
		Total:          3,
		Complete:       2,
		Failed:         1,
		ItemsTotal:     10,
		ItemsSucceeded: 8,
		ItemsFailed:    2,
		AvgMS:          1500,
	})

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "1500ms")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
