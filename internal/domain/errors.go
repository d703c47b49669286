package domain

import "errors"

// Validation sentinels. Callers match with errors.Is; these are raised at
// construction time and never retried.
var (
	ErrInvalidLead = errors.New("invalid lead")
	ErrInvalidPlan = errors.New("invalid engagement plan")
)
