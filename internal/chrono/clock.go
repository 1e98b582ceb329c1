package chrono

import (
	"time"
)

// Clock is the interface that anything depending on the system clock should use.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock in the local timezone.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
