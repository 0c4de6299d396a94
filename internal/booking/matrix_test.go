package booking

import (
	"context"
	"testing"

	"github.com/example/padel-scheduler/internal/browser"
)

func TestFindConsecutiveSingleCell(t *testing.T) {
	slots := []matrixSlot{
		{index: 0, court: "Padel indoor 1", start: "21:00", end: "21:30"},
		{index: 1, court: "Padel indoor 1", start: "21:30", end: "22:00"},
	}
	h, ok := findConsecutive(slots, "21:30", 0.5)
	if !ok {
		t.Fatal("expected a slot")
	}
	if h.Index != 1 || h.EndTime != "22:00" {
		t.Fatalf("got %+v", h)
	}
}

func TestFindConsecutiveChainsCells(t *testing.T) {
	slots := []matrixSlot{
		{index: 3, court: "Padel indoor 2", start: "21:30", end: "22:00"},
		{index: 4, court: "Padel indoor 2", start: "22:00", end: "22:30"},
		{index: 5, court: "Padel indoor 2", start: "22:30", end: "23:00"},
	}
	h, ok := findConsecutive(slots, "21:30", 1.5)
	if !ok {
		t.Fatal("expected a chained slot")
	}
	if h.Index != 3 {
		t.Fatalf("should click the first cell of the chain, got index %d", h.Index)
	}
	if h.EndTime != "23:00" {
		t.Fatalf("end time %q, want 23:00", h.EndTime)
	}
}

func TestFindConsecutiveGapBreaksChain(t *testing.T) {
	slots := []matrixSlot{
		{index: 0, court: "Padel indoor 1", start: "21:30", end: "22:00"},
		// 22:00-22:30 is taken
		{index: 1, court: "Padel indoor 1", start: "22:30", end: "23:00"},
	}
	if _, ok := findConsecutive(slots, "21:30", 1); ok {
		t.Fatal("gap in the chain must not be bookable")
	}
}

func TestFindConsecutivePrefersCourtsInNameOrder(t *testing.T) {
	slots := []matrixSlot{
		{index: 7, court: "Padel outdoor 3", start: "21:30", end: "22:30"},
		{index: 2, court: "Padel indoor 1", start: "21:30", end: "22:30"},
	}
	h, ok := findConsecutive(slots, "21:30", 1)
	if !ok {
		t.Fatal("expected a slot")
	}
	if h.Court != "Padel indoor 1" {
		t.Fatalf("court %q, want the alphabetically first", h.Court)
	}
}

func TestFindConsecutiveExactStartOnly(t *testing.T) {
	slots := []matrixSlot{
		{index: 0, court: "Padel indoor 1", start: "21:00", end: "23:00"},
	}
	if _, ok := findConsecutive(slots, "21:30", 1); ok {
		t.Fatal("a slot starting earlier than requested must not match")
	}
}

func TestFindSlotReadsMatrixElements(t *testing.T) {
	sess := newFakeSession()
	sess.visible[matrixSelector] = true
	sess.elements[freeSlotSelector] = []browser.Element{
		{Index: 0, Text: "something unparseable", Title: "Padel indoor 1"},
		{Index: 1, Text: "21:30 - 22:00", Title: "Padel indoor 2"},
		{Index: 2, Text: "22:00 - 22:30", Title: "Padel indoor 2"},
	}

	var m slotMatrix
	h, ok, err := m.FindSlot(context.Background(), sess, "21:30", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a slot")
	}
	if h.Index != 1 || h.Court != "Padel indoor 2" || h.EndTime != "22:30" {
		t.Fatalf("got %+v", h)
	}
}

func TestFindSlotFailsWithoutMatrix(t *testing.T) {
	sess := newFakeSession() // matrix never becomes visible

	var m slotMatrix
	_, _, err := m.FindSlot(context.Background(), sess, "21:30", 1)
	if KindOf(err) != KindNavigation {
		t.Fatalf("kind %q, want %q", KindOf(err), KindNavigation)
	}
}
