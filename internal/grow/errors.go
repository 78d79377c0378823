package grow

import "errors"

// Domain errors surfaced to the service layer. Each one rejects a single
// operation; none are retried and none are fatal.
var (
	// ErrInvalidTransition is returned when a phase change names the phase
	// the plant is already in.
	ErrInvalidTransition = errors.New("phase unchanged")

	// ErrUnknownPhase is returned for phase names that are neither current
	// nor part of the deprecated taxonomy.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrVolumeOutOfRange is returned when a watering volume falls outside
	// the configured bounds.
	ErrVolumeOutOfRange = errors.New("watering volume out of range")

	// ErrNotFound is returned when a referenced plant or growbox does not exist.
	ErrNotFound = errors.New("not found")
)
