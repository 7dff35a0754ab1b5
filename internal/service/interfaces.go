package service

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type BookRepository interface {
	Create(ctx context.Context, args repoargs.CreateBook) (*domain.Book, error)
	Update(ctx context.Context, args repoargs.UpdateBook) (*domain.Book, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Book, error)
	GetAll(ctx context.Context) ([]domain.Book, error)
	DecrementInventory(ctx context.Context, id int64) (*domain.Book, error)
	IncrementInventory(ctx context.Context, id int64) (*domain.Book, error)
}

type BorrowingRepository interface {
	Create(ctx context.Context, args repoargs.CreateBorrowing) (*domain.Borrowing, error)
	FindByID(ctx context.Context, id int64) (*domain.Borrowing, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Borrowing, error)
	FindActiveByUserID(ctx context.Context, userID int64) (*domain.Borrowing, error)
	GetByFilter(ctx context.Context, filter repoargs.BorrowingFilter) ([]domain.Borrowing, error)
	MarkReturned(ctx context.Context, id int64, returnedAt time.Time) (*domain.Borrowing, error)
	GetOverdue(ctx context.Context, deadline time.Time, limit uint) ([]repoargs.OverdueBorrowing, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, args repoargs.CreatePayment) (*domain.Payment, error)
	FindByID(ctx context.Context, id int64) (*domain.Payment, error)
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	MarkPaidBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	GetAll(ctx context.Context) ([]domain.Payment, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Payment, error)
	ExistsForUser(ctx context.Context, paymentID, userID int64) (bool, error)
}

// CheckoutGateway клиент платежного шлюза. Реализуется checkout.HTTPClient.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, args checkout.CreateSessionArgs) (*checkout.Session, error)
	GetSession(ctx context.Context, sessionID string) (*checkout.Session, error)
}

// Notifier отправляет уведомление о созданном займе. Сбои отправки остаются
// внутри реализации и не влияют на результат операции.
type Notifier interface {
	BorrowingCreated(user *domain.User, book *domain.Book, borrowing *domain.Borrowing)
}
