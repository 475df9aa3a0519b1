package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireOverdue(context.Context) (int64, error) {
	e.calls.Add(1)
	return 2, e.err
}

func TestExpireQuotesCallsExpirer(t *testing.T) {
	expirer := &countingExpirer{}
	s := New(expirer, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	s.ExpireQuotes()
	s.ExpireQuotes()

	if got := expirer.calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestExpireQuotesLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	expirer := &countingExpirer{err: errors.New("database is locked")}
	s := New(expirer, slog.New(slog.NewJSONHandler(&buf, nil)))

	s.ExpireQuotes()

	if !strings.Contains(buf.String(), "quote expiry job failed") || !strings.Contains(buf.String(), "database is locked") {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := New(&countingExpirer{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err := s.Start("every now and then"); err == nil {
		t.Fatal("expected invalid schedule to be rejected")
	}
}

func TestStartAndStop(t *testing.T) {
	s := New(&countingExpirer{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err := s.Start("@hourly"); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	<-s.Stop().Done()
}
