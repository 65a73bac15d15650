package availability

import (
	"testing"
	"time"
)

func openWindow(startMin, endMin int) Window {
	return Window{Weekday: time.Monday, StartMin: startMin, EndMin: endMin, Available: true}
}

func starts(slots []Slot) []int {
	out := make([]int, len(slots))
	for i, s := range slots {
		out[i] = s.StartMin
	}
	return out
}

func TestGenerateSlots_SimpleDay(t *testing.T) {
	// 09:00-12:00 window, 60 minute sessions at 60 minute steps.
	slots := GenerateSlots([]Window{openWindow(9*60, 12*60)}, 60, 60)

	want := []int{9 * 60, 10 * 60, 11 * 60}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if s.StartMin != want[i] {
			t.Fatalf("slot %d: expected start %d, got %d", i, want[i], s.StartMin)
		}
		if s.EndMin-s.StartMin != 60 {
			t.Fatalf("slot %d: wrong duration %d", i, s.EndMin-s.StartMin)
		}
		if !s.Available {
			t.Fatalf("slot %d: expected available", i)
		}
	}
}

func TestGenerateSlots_StepSmallerThanDuration(t *testing.T) {
	// A 90 minute session can still start at every 30 minute boundary.
	slots := GenerateSlots([]Window{openWindow(9*60, 12*60)}, 90, 30)

	want := []int{9 * 60, 9*60 + 30, 10 * 60, 10*60 + 30} // last fit: 10:30+90 = 12:00
	got := starts(slots)
	if len(got) != len(want) {
		t.Fatalf("expected starts %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected starts %v, got %v", want, got)
		}
	}
}

func TestGenerateSlots_DurationDoesNotFit(t *testing.T) {
	if slots := GenerateSlots([]Window{openWindow(9*60, 9*60+45)}, 60, 60); len(slots) != 0 {
		t.Fatalf("expected no slots in a too-short window, got %d", len(slots))
	}
}

func TestGenerateSlots_MultipleWindowsOrdered(t *testing.T) {
	slots := GenerateSlots([]Window{
		openWindow(9*60, 11*60),
		openWindow(14*60, 16*60),
	}, 60, 60)

	want := []int{9 * 60, 10 * 60, 14 * 60, 15 * 60}
	got := starts(slots)
	if len(got) != len(want) {
		t.Fatalf("expected starts %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected starts %v, got %v", want, got)
		}
	}
}

func TestGenerateSlots_InvalidInputs(t *testing.T) {
	if slots := GenerateSlots([]Window{openWindow(9*60, 12*60)}, 0, 60); slots != nil {
		t.Fatal("expected nil for zero duration")
	}
	if slots := GenerateSlots([]Window{openWindow(9*60, 12*60)}, 60, 0); slots != nil {
		t.Fatal("expected nil for zero step")
	}
}

func TestMarkConflicts(t *testing.T) {
	slots := GenerateSlots([]Window{openWindow(9*60, 12*60)}, 60, 60)
	busy := []Interval{{StartMin: 10 * 60, EndMin: 11 * 60}}

	marked := MarkConflicts(slots, busy)

	wantAvailable := map[int]bool{9 * 60: true, 10 * 60: false, 11 * 60: true}
	for _, s := range marked {
		if s.Available != wantAvailable[s.StartMin] {
			t.Fatalf("slot %d: expected available=%v, got %v", s.StartMin, wantAvailable[s.StartMin], s.Available)
		}
	}
}

func TestMarkConflicts_BoundaryTouchDoesNotConflict(t *testing.T) {
	// Half-open: a slot ending exactly at a busy interval's start is free,
	// and so is a slot starting exactly at its end.
	slots := []Slot{
		{StartMin: 9 * 60, EndMin: 10 * 60, Available: true},
		{StartMin: 11 * 60, EndMin: 12 * 60, Available: true},
	}
	busy := []Interval{{StartMin: 10 * 60, EndMin: 11 * 60}}

	for _, s := range MarkConflicts(slots, busy) {
		if !s.Available {
			t.Fatalf("touching slot %d should stay available", s.StartMin)
		}
	}
}

func TestMarkConflicts_PartialOverlap(t *testing.T) {
	slots := []Slot{{StartMin: 9 * 60, EndMin: 10*60 + 30, Available: true}}
	busy := []Interval{{StartMin: 10 * 60, EndMin: 11 * 60}}

	if MarkConflicts(slots, busy)[0].Available {
		t.Fatal("partially overlapping slot should be unavailable")
	}
}

func TestContains(t *testing.T) {
	windows := []Window{openWindow(9*60, 12*60), openWindow(14*60, 16*60)}

	tests := []struct {
		start, end int
		want       bool
	}{
		{9 * 60, 10 * 60, true},
		{11 * 60, 12 * 60, true},
		{8 * 60, 9 * 60, false},       // before opening
		{11 * 60, 12*60 + 30, false},  // spills past close
		{12 * 60, 14 * 60, false},     // in the gap
		{14 * 60, 16 * 60, true},      // exactly the second window
		{15 * 60, 16*60 + 30, false},  // past the second window
	}

	for _, tt := range tests {
		if got := Contains(windows, tt.start, tt.end); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{0, 60, 60, 120, false}, // touching
		{0, 60, 59, 120, true},
		{0, 120, 30, 60, true}, // containment
		{60, 120, 0, 60, false},
		{0, 60, 0, 60, true},
	}

	for _, tt := range tests {
		if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
			t.Errorf("Overlaps(%d,%d,%d,%d) = %v, want %v", tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
		}
	}
}
