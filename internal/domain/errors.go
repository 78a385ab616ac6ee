package domain

import "errors"

// Error taxonomy shared by the service, repositories and HTTP layer.
// Callers wrap these with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrNotFound            = errors.New("not found")
	ErrForbiddenTransition = errors.New("forbidden transition")
	ErrOwnership           = errors.New("claim not owned by actor")
	ErrUploadFailed        = errors.New("upload failed")
	ErrIntegrity           = errors.New("integrity error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
)
