package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	for from.Weekday() != wd {
		from = from.AddDate(0, 0, 1)
	}
	return from
}

func TestWindowsOn_RecurringWeekday(t *testing.T) {
	sched := &Schedule{
		TutorID: uuid.New(),
		Windows: []Window{
			{Weekday: time.Monday, StartMin: 14 * 60, EndMin: 17 * 60, Available: true},
			{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
			{Weekday: time.Wednesday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
		},
	}

	monday := nextWeekday(date(2026, 9, 1), time.Monday)
	got := sched.WindowsOn(monday)
	if len(got) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got))
	}
	if got[0].StartMin != 9*60 || got[1].StartMin != 14*60 {
		t.Fatalf("windows not sorted by start: %+v", got)
	}

	tuesday := nextWeekday(date(2026, 9, 1), time.Tuesday)
	if got := sched.WindowsOn(tuesday); len(got) != 0 {
		t.Fatalf("expected no windows on an unconfigured day, got %d", len(got))
	}
}

func TestWindowsOn_ClosedOverrideWins(t *testing.T) {
	sched := &Schedule{
		Windows: []Window{
			{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
			{Weekday: time.Monday, StartMin: 0, EndMin: 24 * 60, Available: false},
		},
	}

	monday := nextWeekday(date(2026, 9, 1), time.Monday)
	if got := sched.WindowsOn(monday); len(got) != 0 {
		t.Fatalf("closed override should suppress the day, got %d windows", len(got))
	}
}

func TestWindowsOn_ExceptionReplacesRecurring(t *testing.T) {
	monday := nextWeekday(date(2026, 9, 1), time.Monday)
	exceptionDay := monday

	sched := &Schedule{
		Windows: []Window{
			{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
			{Weekday: time.Monday, Date: &exceptionDay, StartMin: 15 * 60, EndMin: 18 * 60, Available: true},
			{Weekday: time.Monday, Date: &exceptionDay, StartMin: 13 * 60, EndMin: 14 * 60, Available: true},
		},
	}

	got := sched.WindowsOn(monday)
	if len(got) != 2 {
		t.Fatalf("expected only the 2 exception windows, got %d", len(got))
	}
	if got[0].StartMin != 13*60 || got[1].StartMin != 15*60 {
		t.Fatalf("exception windows not sorted: %+v", got)
	}

	// The following Monday falls back to the recurring window.
	nextMonday := monday.AddDate(0, 0, 7)
	got = sched.WindowsOn(nextMonday)
	if len(got) != 1 || got[0].StartMin != 9*60 {
		t.Fatalf("expected the recurring window on the next Monday, got %+v", got)
	}
}

func TestWindowsOn_ClosedException(t *testing.T) {
	monday := nextWeekday(date(2026, 9, 1), time.Monday)
	holiday := monday

	sched := &Schedule{
		Windows: []Window{
			{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
			{Weekday: time.Monday, Date: &holiday, StartMin: 0, EndMin: 24 * 60, Available: false},
		},
	}

	if got := sched.WindowsOn(monday); len(got) != 0 {
		t.Fatalf("closed exception should suppress the recurring window, got %d", len(got))
	}
}

func TestWindowsOn_MixedExceptionsSameDate(t *testing.T) {
	monday := nextWeekday(date(2026, 9, 1), time.Monday)
	day := monday

	sched := &Schedule{
		Windows: []Window{
			{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
			{Weekday: time.Monday, Date: &day, StartMin: 9 * 60, EndMin: 12 * 60, Available: false},
			{Weekday: time.Monday, Date: &day, StartMin: 14 * 60, EndMin: 16 * 60, Available: true},
		},
	}

	// The closed exception removes only itself; the open exception on the
	// same date stays in effect.
	got := sched.WindowsOn(monday)
	if len(got) != 1 {
		t.Fatalf("expected 1 window, got %d", len(got))
	}
	if got[0].StartMin != 14*60 || got[0].EndMin != 16*60 {
		t.Fatalf("expected the open 14:00-16:00 exception, got [%d, %d)", got[0].StartMin, got[0].EndMin)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		windows []Window
		wantErr error
	}{
		{
			name: "valid non-overlapping",
			windows: []Window{
				{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
				{Weekday: time.Monday, StartMin: 12 * 60, EndMin: 17 * 60, Available: true},
			},
		},
		{
			name:    "inverted window",
			windows: []Window{{Weekday: time.Monday, StartMin: 12 * 60, EndMin: 9 * 60, Available: true}},
			wantErr: ErrWindowInverted,
		},
		{
			name:    "out of range",
			windows: []Window{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 25 * 60, Available: true}},
			wantErr: ErrWindowOutOfRange,
		},
		{
			name: "overlapping same weekday",
			windows: []Window{
				{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
				{Weekday: time.Monday, StartMin: 11 * 60, EndMin: 14 * 60, Available: true},
			},
			wantErr: ErrWindowsOverlap,
		},
		{
			name: "same range on different weekdays",
			windows: []Window{
				{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
				{Weekday: time.Tuesday, StartMin: 9 * 60, EndMin: 12 * 60, Available: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &Schedule{Windows: tt.windows}
			err := sched.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
