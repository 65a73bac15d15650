package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const minutesPerDay = 24 * 60

var (
	ErrWindowInverted   = errors.New("window start must be before end")
	ErrWindowOutOfRange = errors.New("window minutes out of day range")
	ErrWindowsOverlap   = errors.New("windows on the same day overlap")
)

// Window is one bounded period during which a tutor may be booked. It is
// either recurring (Date nil, keyed by Weekday) or a one-off exception for a
// specific calendar date. Available=false marks a normally open day as closed.
type Window struct {
	Weekday   time.Weekday
	Date      *time.Time // set only on date-specific exceptions
	StartMin  int        // minute of day, inclusive
	EndMin    int        // minute of day, exclusive
	Available bool
}

func (w Window) Recurring() bool {
	return w.Date == nil
}

// Schedule is a tutor's full configured availability: recurring weekly
// windows plus date exceptions. Pure data, read-only to the booking core.
type Schedule struct {
	TutorID uuid.UUID
	Windows []Window
}

// WindowsOn resolves the open windows for one calendar date. Exceptions for
// the exact date replace the recurring weekday windows entirely. A closed
// recurring override suppresses the whole day; a closed exception removes
// only itself, so other open exceptions on the same date still apply. The
// result is sorted by start minute. Empty means the tutor is unavailable.
func (s *Schedule) WindowsOn(date time.Time) []Window {
	var exceptions []Window
	for _, w := range s.Windows {
		if w.Date != nil && sameDay(*w.Date, date) {
			exceptions = append(exceptions, w)
		}
	}
	if len(exceptions) > 0 {
		return openSorted(exceptions)
	}

	var recurring []Window
	for _, w := range s.Windows {
		if w.Date == nil && w.Weekday == date.Weekday() {
			if !w.Available {
				// Closed override wins over any other recurring window.
				return nil
			}
			recurring = append(recurring, w)
		}
	}
	return openSorted(recurring)
}

// Validate rejects inverted, out-of-range, and mutually overlapping windows.
// Overlap within one weekday (or one exception date) is a configuration
// error, not something to silently merge.
func (s *Schedule) Validate() error {
	for _, w := range s.Windows {
		if w.StartMin >= w.EndMin {
			return fmt.Errorf("%w: [%d, %d)", ErrWindowInverted, w.StartMin, w.EndMin)
		}
		if w.StartMin < 0 || w.EndMin > minutesPerDay {
			return fmt.Errorf("%w: [%d, %d)", ErrWindowOutOfRange, w.StartMin, w.EndMin)
		}
	}

	byDay := make(map[string][]Window)
	for _, w := range s.Windows {
		byDay[dayKey(w)] = append(byDay[dayKey(w)], w)
	}
	for key, windows := range byDay {
		sort.Slice(windows, func(i, j int) bool { return windows[i].StartMin < windows[j].StartMin })
		for i := 1; i < len(windows); i++ {
			if windows[i].StartMin < windows[i-1].EndMin {
				return fmt.Errorf("%w: %s [%d, %d) and [%d, %d)", ErrWindowsOverlap, key,
					windows[i-1].StartMin, windows[i-1].EndMin, windows[i].StartMin, windows[i].EndMin)
			}
		}
	}
	return nil
}

func dayKey(w Window) string {
	if w.Date != nil {
		return w.Date.Format("2006-01-02")
	}
	return w.Weekday.String()
}

func openSorted(windows []Window) []Window {
	var open []Window
	for _, w := range windows {
		if w.Available {
			open = append(open, w)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].StartMin < open[j].StartMin })
	return open
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
