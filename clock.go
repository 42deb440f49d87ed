package hold

import "time"

// Clock supplies the current time to the engine. Deadlines, expiry checks
// and the sweeper cutoff all go through it, so tests can drive expiry by
// advancing a fake clock instead of sleeping.
type Clock interface {
	Now() time.Time
}

// systemClock is the wall-clock default.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }
