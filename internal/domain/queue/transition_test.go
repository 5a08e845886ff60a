package queue

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusWaiting, StatusInProgress, true},
		{StatusWaiting, StatusNoShow, true},
		{StatusWaiting, StatusDone, false},
		{StatusInProgress, StatusDone, true},
		{StatusInProgress, StatusNoShow, true},
		{StatusInProgress, StatusWaiting, false},
		{StatusDone, StatusWaiting, false},
		{StatusDone, StatusInProgress, false},
		{StatusNoShow, StatusInProgress, false},
		{StatusDone, StatusDone, true},
		{StatusWaiting, StatusWaiting, true},
		{Status("cancelled"), StatusDone, false},
		{StatusWaiting, Status("cancelled"), false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransition_SetsTimestamps(t *testing.T) {
	checkIn := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	e := &Entry{Status: StatusWaiting, CheckInTime: checkIn}

	start := checkIn.Add(15 * time.Minute)
	if err := Transition(e, StatusInProgress, start); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.StartTime == nil || !e.StartTime.Equal(start) {
		t.Fatalf("expected start time %v, got %v", start, e.StartTime)
	}
	if e.EndTime != nil {
		t.Errorf("expected no end time yet")
	}

	end := start.Add(20 * time.Minute)
	if err := Transition(e, StatusDone, end); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.EndTime == nil || !e.EndTime.Equal(end) {
		t.Errorf("expected end time %v, got %v", end, e.EndTime)
	}
	if !e.StartTime.Equal(start) {
		t.Errorf("start time changed to %v", e.StartTime)
	}
}

func TestTransition_SameStatusKeepsStartTime(t *testing.T) {
	start := time.Date(2026, time.March, 10, 8, 15, 0, 0, time.UTC)
	e := &Entry{Status: StatusWaiting}
	if err := Transition(e, StatusInProgress, start); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Transition(e, StatusInProgress, start.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.StartTime.Equal(start) {
		t.Errorf("expected start time to stay %v, got %v", start, e.StartTime)
	}
}

func TestTransition_Rejected(t *testing.T) {
	e := &Entry{Status: StatusDone}
	err := Transition(e, StatusWaiting, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != StatusDone || te.To != StatusWaiting {
		t.Errorf("unexpected error fields: %+v", te)
	}
	if e.Status != StatusDone {
		t.Errorf("entry changed to %s", e.Status)
	}
}

func TestTransition_NoShowFromWaiting(t *testing.T) {
	e := &Entry{Status: StatusWaiting}
	if err := Transition(e, StatusNoShow, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.StartTime != nil || e.EndTime != nil {
		t.Errorf("no_show should not stamp times")
	}
}

func TestComputeStats(t *testing.T) {
	base := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	at := func(m int) *time.Time {
		v := base.Add(time.Duration(m) * time.Minute)
		return &v
	}
	entries := []*Entry{
		{Status: StatusWaiting, CheckInTime: base},
		{Status: StatusInProgress, CheckInTime: base, StartTime: at(10)},
		{Status: StatusDone, CheckInTime: base, StartTime: at(20), EndTime: at(40)},
		{Status: StatusNoShow, CheckInTime: base},
	}
	st := ComputeStats(entries)
	if st.Total != 4 || st.Waiting != 1 || st.InProgress != 1 || st.Done != 1 || st.NoShow != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.AverageWaitTime != 15 {
		t.Errorf("expected average wait 15, got %v", st.AverageWaitTime)
	}
}

func TestComputeStats_NoneStarted(t *testing.T) {
	st := ComputeStats([]*Entry{{Status: StatusWaiting}})
	if st.AverageWaitTime != 0 {
		t.Errorf("expected 0, got %v", st.AverageWaitTime)
	}
	if empty := ComputeStats(nil); empty != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", empty)
	}
}

func TestNextQueueNumber(t *testing.T) {
	entries := []*Entry{
		{QueueDate: "2026-03-10", QueueNumber: 1},
		{QueueDate: "2026-03-10", QueueNumber: 4},
		{QueueDate: "2026-03-09", QueueNumber: 9},
	}
	if got := NextQueueNumber(entries, "2026-03-10"); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := NextQueueNumber(entries, "2026-03-11"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}
