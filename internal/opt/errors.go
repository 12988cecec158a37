package opt

import "errors"

// Sentinel errors returned by the search. Callers match them with errors.Is.
var (
	ErrNoLocations        = errors.New("no locations to search")
	ErrMissingReading     = errors.New("missing reading")
	ErrNoFeasibleSequence = errors.New("no feasible sequence")
	ErrInvalidParams      = errors.New("invalid search params")
)
