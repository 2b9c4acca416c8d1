package busguard

import "testing"

func TestAcquireReleaseTracksInFlight(t *testing.T) {
	var c Counter
	tok := c.Acquire()
	if c.InFlight() != 1 {
		t.Fatalf("InFlight() = %d, want 1", c.InFlight())
	}
	tok.Release()
	if c.InFlight() != 0 {
		t.Fatalf("InFlight() = %d, want 0 after Release", c.InFlight())
	}
}

func TestShouldSkipBeforeStop(t *testing.T) {
	var c Counter
	tok := c.Acquire()
	defer tok.Release()
	if tok.ShouldSkip() {
		t.Error("expected ShouldSkip() == false before Stop")
	}
}

func TestShouldSkipAfterStop(t *testing.T) {
	var c Counter
	c.Stop()
	tok := c.Acquire()
	defer tok.Release()
	if !tok.ShouldSkip() {
		t.Error("expected ShouldSkip() == true for tokens acquired after Stop")
	}
}

func TestTokenAcquiredBeforeStopKeepsItsValue(t *testing.T) {
	var c Counter
	tok := c.Acquire()
	c.Stop()
	if tok.ShouldSkip() {
		t.Error("expected a token's ShouldSkip value to be fixed at Acquire time")
	}
	tok.Release()
}

func TestMultipleAcquiresTrackIndependently(t *testing.T) {
	var c Counter
	t1 := c.Acquire()
	t2 := c.Acquire()
	if c.InFlight() != 2 {
		t.Fatalf("InFlight() = %d, want 2", c.InFlight())
	}
	t1.Release()
	if c.InFlight() != 1 {
		t.Fatalf("InFlight() = %d, want 1 after one release", c.InFlight())
	}
	t2.Release()
	if c.InFlight() != 0 {
		t.Fatalf("InFlight() = %d, want 0", c.InFlight())
	}
}
