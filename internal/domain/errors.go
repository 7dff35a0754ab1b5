package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrValidation      = errors.New("validation error")
	ErrOutOfStock      = errors.New("book out of stock")
	ErrAlreadyReturned = errors.New("borrowing already returned")
	ErrForbidden       = errors.New("forbidden")
)

// ActiveBorrowingError возвращается при попытке оформить второй активный заем книги.
// Несет в себе уже открытый заем юзера.
type ActiveBorrowingError struct {
	Borrowing *Borrowing
}

func NewActiveBorrowingError(borrowing *Borrowing) error {
	return &ActiveBorrowingError{Borrowing: borrowing}
}

func (e *ActiveBorrowingError) Error() string {
	return fmt.Sprintf(
		"user with id %d already has an active borrowing with id %d",
		e.Borrowing.UserID,
		e.Borrowing.ID,
	)
}
