package services

import "time"

// Clock tells the engine what time it is.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// storageTime truncates t the way both storage backends persist it.
func storageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
