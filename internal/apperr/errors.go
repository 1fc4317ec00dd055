package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrBusy     = errors.New("a backup cycle is already running")
)
