package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/service"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
	Me(ctx context.Context, userID int64) (*domain.User, error)
}

type BookServicer interface {
	Create(ctx context.Context, args service.BookArgs) (*domain.Book, error)
	Update(ctx context.Context, id int64, args service.BookArgs) (*domain.Book, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
}

type BorrowingServicer interface {
	Create(ctx context.Context, userID int64, args service.CreateBorrowingArgs) (*service.CreateBorrowingResult, error)
	Return(ctx context.Context, actorID, borrowingID int64) (*service.ReturnResult, error)
	List(ctx context.Context, actorID int64, filter repoargs.BorrowingFilter) ([]domain.Borrowing, error)
	Get(ctx context.Context, actorID, borrowingID int64) (*domain.Borrowing, error)
}

type PaymentServicer interface {
	HandleCheckoutEvent(ctx context.Context, event *checkout.Event) (*domain.Payment, error)
	CheckSessionStatus(ctx context.Context, actorID, paymentID int64) (*domain.Payment, error)
	List(ctx context.Context, actorID int64) ([]domain.Payment, error)
	Get(ctx context.Context, actorID, paymentID int64) (*domain.Payment, error)
}
