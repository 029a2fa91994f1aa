package metadata

import "errors"

// Standard error taxonomy. Operations wrap these sentinels with path
// and position context; callers match them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrFileAccess      = errors.New("file access failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMalformed       = errors.New("malformed metadata document")
)
