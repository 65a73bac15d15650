package availability

// Slot is one candidate bookable interval, minute-of-day, half-open.
// Ephemeral: computed on every query, never persisted.
type Slot struct {
	StartMin  int
	EndMin    int
	Available bool
}

// Interval is a busy period already committed for a tutor, minute-of-day.
type Interval struct {
	StartMin int
	EndMin   int
}

// GenerateSlots emits candidate slots for the given open windows. Within each
// window, slot starts advance by stepMin (not by durationMin, so overlapping
// start-time choices stay selectable) as long as the full duration fits
// before the window closes. Windows are assumed sorted and non-overlapping,
// which WindowsOn guarantees, so the output is ascending by start.
func GenerateSlots(windows []Window, durationMin, stepMin int) []Slot {
	if durationMin <= 0 || stepMin <= 0 {
		return nil
	}

	var slots []Slot
	for _, w := range windows {
		for start := w.StartMin; start+durationMin <= w.EndMin; start += stepMin {
			slots = append(slots, Slot{
				StartMin:  start,
				EndMin:    start + durationMin,
				Available: true,
			})
		}
	}
	return slots
}

// MarkConflicts clears Available on every candidate that intersects a busy
// interval. Half-open semantics: a slot ending exactly where a session starts
// does not conflict.
func MarkConflicts(slots []Slot, busy []Interval) []Slot {
	for i := range slots {
		if overlapsAny(slots[i].StartMin, slots[i].EndMin, busy) {
			slots[i].Available = false
		}
	}
	return slots
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func overlapsAny(start, end int, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.StartMin, b.EndMin) {
			return true
		}
	}
	return false
}

// Contains reports whether [start, end) lies fully inside one of the windows.
func Contains(windows []Window, start, end int) bool {
	for _, w := range windows {
		if start >= w.StartMin && end <= w.EndMin {
			return true
		}
	}
	return false
}
