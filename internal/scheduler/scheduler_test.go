package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

type countingCloser struct {
	runs []time.Time
	err  error
}

func (c *countingCloser) Run(_ context.Context, now time.Time) (models.DailyReport, error) {
	c.runs = append(c.runs, now)
	return models.DailyReport{Date: now}, c.err
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler("every evening", time.UTC, &countingCloser{}, nil)
	if err := s.Start(); err == nil {
		t.Errorf("Expected invalid cron expression to be rejected")
	}
}

func TestStart_RegistersDailyClose(t *testing.T) {
	s := NewScheduler("5 0 * * *", time.UTC, &countingCloser{}, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	defer s.Stop()

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected one job, got %d", len(entries))
	}
	next := entries[0].Schedule.Next(time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC))
	if !next.Equal(time.Date(2024, 3, 19, 0, 5, 0, 0, time.UTC)) {
		t.Errorf("Expected next run at 00:05, got %s", next)
	}
}

func TestRunDailyClose(t *testing.T) {
	fixed := time.Date(2024, 3, 19, 0, 5, 0, 0, time.UTC)
	testCases := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure is logged", errors.New("mongo down")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			closer := &countingCloser{err: tc.err}
			s := NewScheduler("5 0 * * *", time.UTC, closer, nil)
			s.now = func() time.Time { return fixed }
			s.runDailyClose()
			if len(closer.runs) != 1 || !closer.runs[0].Equal(fixed) {
				t.Errorf("Expected one run at %s, got %v", fixed, closer.runs)
			}
		})
	}
}
