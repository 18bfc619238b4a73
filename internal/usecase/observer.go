package usecase

import "time"

// Observer receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveRun(elapsed time.Duration, err error)
	SearchFailed()
	ConsistencyCorrected()
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration, error) {}
func (noopObserver) ObserveRun(time.Duration, error)           {}
func (noopObserver) SearchFailed()                             {}
func (noopObserver) ConsistencyCorrected()                     {}

// NopObserver returns an Observer that discards all measurements.
func NopObserver() Observer {
	return noopObserver{}
}
