package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNoBracket     = errors.New("no bracket")
	ErrInvalidGraph  = errors.New("invalid match graph")
	ErrInvalidWinner = errors.New("winner does not occupy a slot of the match")
	ErrInvalidSlot   = errors.New("slot must be 1 or 2")
	ErrDuplicateSlot = errors.New("participant already occupies the other slot")
	ErrWrongMode     = errors.New("operation not valid for tournament mode")
	ErrInvalidInput  = errors.New("invalid input")
)

// storeErr translates a gorm error: a missing record becomes ErrNotFound,
// anything else is wrapped as a store failure.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("store failure on %s: %w", what, err)
}
