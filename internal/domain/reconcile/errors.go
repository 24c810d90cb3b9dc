package reconcile

import "errors"

var (
	ErrConnection      = errors.New("external collaborator unavailable")
	ErrOwnershipMiss   = errors.New("owner has no tracker identity")
	ErrTransientAction = errors.New("tracker action failed after retries")
	ErrAmbiguousMatch  = errors.New("summary matches more than one issue")
	ErrSweepLimit      = errors.New("sweep close count exceeds limit")

	ErrInvalidFinding    = errors.New("invalid finding")
	ErrInvalidObjectType = errors.New("invalid object type")
)
