package domain

import (
	"github.com/shopspring/decimal"

	"time"
)

type User struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string
	Password  string
	IsStaff   bool
}

type Book struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Title     string
	Author    string
	Cover     CoverType
	Inventory int32
	DailyFee  decimal.Decimal
}

type Borrowing struct {
	ID                 int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	UserID             int64
	BookID             int64
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   *time.Time
}

// IsActive возвращает true пока книга не возвращена.
func (b *Borrowing) IsActive() bool {
	return b.ActualReturnDate == nil
}

type Payment struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	BorrowingID int64
	Status      PaymentStatusType
	Kind        PaymentKindType
	SessionID   string
	SessionURL  string
	Amount      decimal.Decimal
}
