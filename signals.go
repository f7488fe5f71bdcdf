package tether

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Watch lifecycle signals.
var (
	// WatchStarted is emitted when a root begins to be observed.
	WatchStarted = capitan.NewSignal(
		"tether.watch.started",
		"Root observation started",
	)

	// WatchStopped is emitted when a root is no longer observed.
	WatchStopped = capitan.NewSignal(
		"tether.watch.stopped",
		"Root observation stopped",
	)

	// WatchStateChanged is emitted when a synchronizer transitions between states.
	WatchStateChanged = capitan.NewSignal(
		"tether.watch.state.changed",
		"Synchronizer state transition",
	)
)

// Batch signals.
var (
	// BatchReceived is emitted when a coalesced batch of records is delivered.
	BatchReceived = capitan.NewSignal(
		"tether.batch.received",
		"Mutation batch delivered",
	)

	// BatchApplied is emitted when a batch was applied without lifecycle errors.
	BatchApplied = capitan.NewSignal(
		"tether.batch.applied",
		"Mutation batch applied",
	)

	// BatchFailed is emitted when user code failed while a batch was applied.
	// Bookkeeping for the batch is complete regardless.
	BatchFailed = capitan.NewSignal(
		"tether.batch.failed",
		"Mutation batch applied with errors",
	)
)

// Component signals.
var (
	ComponentConnected = capitan.NewSignal(
		"tether.component.connected",
		"Component bound and connected",
	)

	ComponentDisconnected = capitan.NewSignal(
		"tether.component.disconnected",
		"Component disconnected and released",
	)

	ComponentFailed = capitan.NewSignal(
		"tether.component.failed",
		"Component lifecycle hook failed",
	)

	// LoopTaskFailed is emitted by the default loop error handler.
	LoopTaskFailed = capitan.NewSignal(
		"tether.loop.task.failed",
		"Uncaught loop task error",
	)
)

// emit sends a signal outside of any request scope.
func emit(sig capitan.Signal, fields ...capitan.Field) {
	capitan.Emit(context.Background(), sig, fields...)
}
