package audioshake

import "time"

// Clock abstracts wall-clock reads and delays so the polling loop can
// be tested without real waits.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

var _ Clock = SystemClock{}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
