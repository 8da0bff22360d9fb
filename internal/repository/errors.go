package repository

import "github.com/pkg/errors"

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	// ErrConflict reports a lost optimistic-concurrency race.
	ErrConflict = errors.New("concurrent modification")
)
