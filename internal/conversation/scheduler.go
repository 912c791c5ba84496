package conversation

import "time"

// Scheduler defers delivery-state transitions. The production implementation
// uses real timers; tests substitute a manual one so progressions are
// deterministic without wall-clock waits.
type Scheduler interface {
	// AfterFunc runs f after d and returns a cancel function.
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}
