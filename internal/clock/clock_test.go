package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)
	c := NewManual(start)
	if !c.Now().Equal(start) {
		t.Errorf("Expected %v, got %v", start, c.Now())
	}
	c.Advance(2 * time.Minute)
	if want := start.Add(2 * time.Minute); !c.Now().Equal(want) {
		t.Errorf("Expected %v, got %v", want, c.Now())
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Set did not move the clock")
	}
}

func TestSystemIsUTC(t *testing.T) {
	if loc := (System{}).Now().Location(); loc != time.UTC {
		t.Errorf("Expected UTC, got %v", loc)
	}
}
