package domain

import "errors"

// Sentinel error kinds for solve failures, matched with errors.Is by
// callers that need to distinguish a synchronous rejection from a result
// that simply carries a non-feasible status.
var (
	// ErrInvalidInput marks a malformed input bundle: bad dates, unknown
	// shift tokens, negative requirements, contract sums exceeding the
	// horizon. Reported at the boundary; no solve runs.
	ErrInvalidInput = errors.New("scheduling: invalid input")

	// ErrCancelled marks a solve that was stopped by cooperative
	// cancellation before it reached a natural termination criterion. The
	// caller still receives the best-known assignment with status timeout.
	ErrCancelled = errors.New("scheduling: solve cancelled")

	// ErrInternalInvariantBroken marks a structural invariant violated
	// post-move (e.g. an assignment slot growing past the template size).
	// This is a programmer error: tests must preclude it ever firing.
	ErrInternalInvariantBroken = errors.New("scheduling: internal invariant broken")
)

// Unsatisfiable construction is not an error kind: the greedy constructor
// leaving a slot short is expected and surfaces as hard_violations > 0 and
// status "infeasible" in the result, not as a returned error.
