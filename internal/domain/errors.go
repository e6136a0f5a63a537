package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateVideo  = errors.New("video already exists")
	ErrProviderFailure = errors.New("provider failure")
)
