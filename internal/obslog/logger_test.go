package obslog

import "testing"

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	log := New("not-a-real-level")
	if log == nil {
		t.Fatal("expected a non-nil Logger")
	}
	// exercising each method is the point: none of these should panic.
	log.Infow("hello", "k", "v")
	log.Warnw("careful", "attempt", 1)
	log.Errorw("boom", "err", "oops")
	log.Debugw("detail")
}

func TestNoopDiscardsEverything(t *testing.T) {
	log := Noop()
	log.Infow("hello")
	log.Warnw("hello")
	log.Errorw("hello")
	log.Debugw("hello")
	_ = log.Sync()
}
