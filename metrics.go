package tether

import "time"

// MetricsProvider receives callbacks on synchronizer and lifecycle events.
// Implement it to feed Prometheus, StatsD and the like.
type MetricsProvider interface {
	// OnStateChange is called when a synchronizer transitions between states.
	OnStateChange(from, to State)

	// OnBatchApplied is called after a batch completed without lifecycle
	// errors. Bound counts the instances created by the batch.
	OnBatchApplied(bound, released int, duration time.Duration)

	// OnBatchFailed is called after a batch completed with lifecycle errors.
	OnBatchFailed(duration time.Duration)

	// OnConnect is called for every instance whose Connect ran.
	OnConnect(name string)

	// OnDisconnect is called for every instance released.
	OnDisconnect(name string)

	// OnChangeReceived is called when a batch of records is delivered.
	OnChangeReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Embed it to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                 {}
func (NoOpMetricsProvider) OnBatchApplied(_, _ int, _ time.Duration) {}
func (NoOpMetricsProvider) OnBatchFailed(_ time.Duration)            {}
func (NoOpMetricsProvider) OnConnect(_ string)                       {}
func (NoOpMetricsProvider) OnDisconnect(_ string)                    {}
func (NoOpMetricsProvider) OnChangeReceived()                        {}
