package domain

import "errors"

// Error taxonomy for single-item operations. In bulk operations these are
// recorded per item without stopping the batch. Insufficient history is not
// an error; it surfaces as a low confidence score instead.
var (
	ErrNotFound                = errors.New("product not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
