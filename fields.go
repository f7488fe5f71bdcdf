package tether

import "github.com/zoobzio/capitan"

// Field keys for tether events.
var (
	KeyOldState = capitan.NewStringKey("old_state")
	KeyNewState = capitan.NewStringKey("new_state")
	KeyError    = capitan.NewStringKey("error")

	// KeyDebounce is the configured collecting window.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyName is a discriminator name.
	KeyName = capitan.NewStringKey("name")

	// KeyComponentID is the id of a bound instance.
	KeyComponentID = capitan.NewIntKey("component_id")

	// KeyPhase is the lifecycle phase of a failure.
	KeyPhase = capitan.NewStringKey("phase")

	KeyRecords = capitan.NewIntKey("records")
	KeyAdded   = capitan.NewIntKey("added")
	KeyRemoved = capitan.NewIntKey("removed")
	KeyBound   = capitan.NewIntKey("bound")

	// KeyDuration is the time taken to apply a batch.
	KeyDuration = capitan.NewDurationKey("duration")
)
