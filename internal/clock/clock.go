package clock

import "time"

// Clock supplies the current time. Services take a Clock so tests can
// pin derivations to a fixed instant.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
