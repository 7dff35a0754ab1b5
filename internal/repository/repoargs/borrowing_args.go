package repoargs

import "time"

type CreateBorrowing struct {
	UserID             int64
	BookID             int64
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
}

// BorrowingFilter опциональные условия выборки заемов. nil поле означает что
// условие не применяется.
type BorrowingFilter struct {
	UserID   *int64
	IsActive *bool
}

// OverdueBorrowing заем вместе с данными юзера и книги, нужными для текста
// уведомления о просрочке.
type OverdueBorrowing struct {
	BorrowingID        int64
	UserEmail          string
	BookTitle          string
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
}
