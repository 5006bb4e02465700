package service

import "github.com/jonboulle/clockwork"

// clock is the package time source; tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the service-layer time source. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
