package service

import (
	"errors"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

func isNotFound(err error) bool {
	var e *domain.ErrNotFound
	return errors.As(err, &e)
}

func isConflict(err error) bool {
	var e *domain.ErrConflict
	return errors.As(err, &e)
}
