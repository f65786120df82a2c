package usecases

import "context"

// SummaryInvalidator drops the cached slot summary of a code after its
// occupancy changed. Implemented by the Redis slot summary cache; nil
// disables the fan-out.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, code string) error
}
