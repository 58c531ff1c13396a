package resolver

import "time"

// Lookup outcomes reported to an Observer.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeTimeout     = "timeout"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
	OutcomeCancelled   = "cancelled"
)

// Observer receives render telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveLookup(stage Stage, outcome string, elapsed time.Duration)
	ObserveRender(stage Stage)
	ObserveFailure(kind string)
}

type nopObserver struct{}

func (nopObserver) ObserveLookup(Stage, string, time.Duration) {}
func (nopObserver) ObserveRender(Stage)                        {}
func (nopObserver) ObserveFailure(string)                      {}
