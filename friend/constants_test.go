package friend

import "time"

const (
	// testSequenceLength is the number of random operations applied in the
	// disjointness test.
	testSequenceLength = 500

	// testIDSpace bounds the IDs used by the random operation sequence so
	// that collisions between operations are frequent.
	testIDSpace = 8
)

// testAcceptedAt is the fixed clock reading used by mockTimeProvider.
var testAcceptedAt = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
