package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type BorrowingService struct {
	uow           uow.UOW
	borrowingRepo BorrowingRepository
	userRepo      UserRepository
	gateway       CheckoutGateway
	notifier      Notifier
}

func NewBorrowingService(u uow.UOW, gateway CheckoutGateway, notifier Notifier) (*BorrowingService, error) {
	borrowingRepo, borrowingRepoErr :=
		uow.GetRepositoryAs[BorrowingRepository](u, uow.RepositoryName(repoargs.BorrowingRepoName))
	if borrowingRepoErr != nil {
		return nil, borrowingRepoErr
	}
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &BorrowingService{
		uow:           u,
		borrowingRepo: borrowingRepo,
		userRepo:      userRepo,
		gateway:       gateway,
		notifier:      notifier,
	}, nil
}

// canViewAll проверка способности видеть чужие займы и платежи. Выборки
// не-привилегированных юзеров всегда скоупятся их собственным id.
func canViewAll(user *domain.User) bool {
	return user.IsStaff
}

type CreateBorrowingArgs struct {
	BookID             int64
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
}

// CreateBorrowingResult созданный заем вместе с ожидающим оплаты платежом:
// его SessionURL отдается клиенту для перехода на оплату.
type CreateBorrowingResult struct {
	Borrowing *domain.Borrowing
	Payment   *domain.Payment
}

// Create оформляет заем книги юзером userID.
//
// Алгоритм работы (целиком внутри одной транзакции БД):
//  1. Списывает один экземпляр книги. Нулевой остаток дает domain.ErrOutOfStock.
//  2. Вставляет заем. Второй активный заем юзера ловится уникальным индексом
//     и возвращается как *domain.ActiveBorrowingError.
//  3. Создает checkout-сессию шлюза на сумму daily_fee × кол-во дней займа.
//     Ошибка шлюза откатывает транзакцию целиком: заем без платежной сессии
//     существовать не должен.
//  4. Сохраняет платеж в статусе PENDING.
//
// Уведомление отправляется после коммита и на результат не влияет.
func (s *BorrowingService) Create(
	ctx context.Context,
	userID int64,
	args CreateBorrowingArgs,
) (*CreateBorrowingResult, error) {
	if !args.ExpectedReturnDate.After(args.BorrowDate) {
		return nil, fmt.Errorf("%w: expected return date must be after borrow date", domain.ErrValidation)
	}

	var result CreateBorrowingResult
	var user *domain.User
	var book *domain.Book

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		bookRepo, bookRepoErr := uow.GetAs[BookRepository](tx, uow.RepositoryName(repoargs.BookRepoName))
		if bookRepoErr != nil {
			return bookRepoErr //nolint:wrapcheck
		}
		borrowingRepo, borrowingRepoErr :=
			uow.GetAs[BorrowingRepository](tx, uow.RepositoryName(repoargs.BorrowingRepoName))
		if borrowingRepoErr != nil {
			return borrowingRepoErr //nolint:wrapcheck
		}
		paymentRepo, paymentRepoErr :=
			uow.GetAs[PaymentRepository](tx, uow.RepositoryName(repoargs.PaymentRepoName))
		if paymentRepoErr != nil {
			return paymentRepoErr //nolint:wrapcheck
		}

		var err error
		user, err = userRepo.FindUserByID(c, userID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		book, err = s.takeBookCopy(c, bookRepo, args.BookID)
		if err != nil {
			return err
		}

		borrowing, createErr := borrowingRepo.Create(c, repoargs.CreateBorrowing{
			UserID:             userID,
			BookID:             book.ID,
			BorrowDate:         args.BorrowDate,
			ExpectedReturnDate: args.ExpectedReturnDate,
		})
		if createErr != nil {
			if errors.Is(createErr, domain.ErrDuplicateKey) {
				active, activeErr := borrowingRepo.FindActiveByUserID(c, userID)
				if activeErr != nil {
					return fmt.Errorf("creating borrowing: %w", activeErr)
				}
				return domain.NewActiveBorrowingError(active)
			}
			return createErr //nolint:wrapcheck
		}

		amount := ComputeAmount(book.DailyFee, BorrowDays(args.BorrowDate, args.ExpectedReturnDate))

		payment, paymentErr := s.createPendingPayment(c, paymentRepo, createPendingPaymentArgs{
			borrowing:   borrowing,
			kind:        domain.PaymentKindPayment,
			amount:      amount,
			productName: book.Title,
		})
		if paymentErr != nil {
			return paymentErr
		}

		result.Borrowing = borrowing
		result.Payment = payment
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("creating borrowing: %w", txErr)
	}

	s.notifier.BorrowingCreated(user, book, result.Borrowing)

	return &result, nil
}

// takeBookCopy списывает экземпляр книги, различая отсутствие книги и нулевой остаток.
func (s *BorrowingService) takeBookCopy(
	ctx context.Context,
	bookRepo BookRepository,
	bookID int64,
) (*domain.Book, error) {
	book, decErr := bookRepo.DecrementInventory(ctx, bookID)
	if decErr == nil {
		return book, nil
	}
	if !errors.Is(decErr, domain.ErrRecordNotFound) {
		return nil, decErr //nolint:wrapcheck
	}
	// guarded update не зацепил строку: либо книги нет, либо она закончилась.
	if _, findErr := bookRepo.FindByID(ctx, bookID); findErr != nil {
		return nil, findErr //nolint:wrapcheck
	}
	return nil, domain.ErrOutOfStock
}

type createPendingPaymentArgs struct {
	borrowing   *domain.Borrowing
	kind        domain.PaymentKindType
	amount      decimal.Decimal
	productName string
}

// createPendingPayment создает checkout-сессию у шлюза и сохраняет PENDING платеж
// с ее идентификаторами.
func (s *BorrowingService) createPendingPayment(
	ctx context.Context,
	paymentRepo PaymentRepository,
	args createPendingPaymentArgs,
) (*domain.Payment, error) {
	session, sessionErr := s.gateway.CreateSession(ctx, checkout.CreateSessionArgs{
		Amount:      args.amount,
		ProductName: args.productName,
		ReferenceID: strconv.FormatInt(args.borrowing.ID, 10),
	})
	if sessionErr != nil {
		return nil, fmt.Errorf("creating checkout session: %w", sessionErr)
	}

	payment, paymentErr := paymentRepo.Create(ctx, repoargs.CreatePayment{
		BorrowingID: args.borrowing.ID,
		Status:      domain.PaymentStatusPending,
		Kind:        args.kind,
		SessionID:   session.ID,
		SessionURL:  session.URL,
		Amount:      args.amount,
	})
	if paymentErr != nil {
		return nil, paymentErr //nolint:wrapcheck
	}
	return payment, nil
}

// ReturnResult закрытый заем. Fine не nil только если возврат просрочен: тогда
// это PENDING платеж типа FINE со ссылкой на оплату.
type ReturnResult struct {
	Borrowing *domain.Borrowing
	Fine      *domain.Payment
}

// Return закрывает заем: ставит фактическую дату возврата и возвращает экземпляр
// книги на полку. Вернуть заем может его владелец или staff-юзер. Просроченный
// возврат дополнительно создает штрафной платеж через платежный шлюз.
//
// Возвращаемые ошибки: domain.ErrRecordNotFound, domain.ErrForbidden,
// domain.ErrAlreadyReturned.
func (s *BorrowingService) Return(ctx context.Context, actorID, borrowingID int64) (*ReturnResult, error) {
	var result ReturnResult

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		bookRepo, bookRepoErr := uow.GetAs[BookRepository](tx, uow.RepositoryName(repoargs.BookRepoName))
		if bookRepoErr != nil {
			return bookRepoErr //nolint:wrapcheck
		}
		borrowingRepo, borrowingRepoErr :=
			uow.GetAs[BorrowingRepository](tx, uow.RepositoryName(repoargs.BorrowingRepoName))
		if borrowingRepoErr != nil {
			return borrowingRepoErr //nolint:wrapcheck
		}
		paymentRepo, paymentRepoErr :=
			uow.GetAs[PaymentRepository](tx, uow.RepositoryName(repoargs.PaymentRepoName))
		if paymentRepoErr != nil {
			return paymentRepoErr //nolint:wrapcheck
		}

		actor, actorErr := userRepo.FindUserByID(c, actorID)
		if actorErr != nil {
			return actorErr //nolint:wrapcheck
		}

		// Блокируем строку займа: конкурентный повторный возврат будет ждать
		// коммита и увидит уже закрытый заем.
		borrowing, findErr := borrowingRepo.FindByIDForUpdate(c, borrowingID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}

		if borrowing.UserID != actor.ID && !canViewAll(actor) {
			return domain.ErrForbidden
		}
		if !borrowing.IsActive() {
			return domain.ErrAlreadyReturned
		}

		returnedAt := time.Now().UTC()

		returned, markErr := borrowingRepo.MarkReturned(c, borrowing.ID, returnedAt)
		if markErr != nil {
			return markErr //nolint:wrapcheck
		}

		book, incErr := bookRepo.IncrementInventory(c, borrowing.BookID)
		if incErr != nil {
			return incErr //nolint:wrapcheck
		}

		result.Borrowing = returned

		overdueDays := OverdueDays(borrowing.ExpectedReturnDate, returnedAt)
		if overdueDays <= 0 {
			return nil
		}

		fineAmount := ComputeFine(book.DailyFee, overdueDays, FineMultiplier)

		fine, fineErr := s.createPendingPayment(c, paymentRepo, createPendingPaymentArgs{
			borrowing:   returned,
			kind:        domain.PaymentKindFine,
			amount:      fineAmount,
			productName: fmt.Sprintf("Fine payment for %q", book.Title),
		})
		if fineErr != nil {
			return fineErr
		}
		result.Fine = fine
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("returning borrowing: %w", txErr)
	}
	return &result, nil
}

// List возвращает займы по фильтру, отсортированные по дате создания по убыванию.
// Не-staff юзер всегда видит только собственные займы, какой бы UserID ни пришел
// в фильтре.
func (s *BorrowingService) List(
	ctx context.Context,
	actorID int64,
	filter repoargs.BorrowingFilter,
) ([]domain.Borrowing, error) {
	actor, actorErr := s.userRepo.FindUserByID(ctx, actorID)
	if actorErr != nil {
		return nil, actorErr //nolint:wrapcheck
	}
	if !canViewAll(actor) {
		filter.UserID = &actor.ID
	}

	borrowings, err := s.borrowingRepo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return borrowings, nil
}

// Get возвращает заем по id. Чужой заем доступен только staff-юзеру.
func (s *BorrowingService) Get(ctx context.Context, actorID, borrowingID int64) (*domain.Borrowing, error) {
	actor, actorErr := s.userRepo.FindUserByID(ctx, actorID)
	if actorErr != nil {
		return nil, actorErr //nolint:wrapcheck
	}

	borrowing, err := s.borrowingRepo.FindByID(ctx, borrowingID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if borrowing.UserID != actor.ID && !canViewAll(actor) {
		return nil, domain.ErrForbidden
	}
	return borrowing, nil
}

// OverdueForAlert возвращает незакрытые займы со сроком возврата не позже deadline.
// Используется фоновым процессором уведомлений.
func (s *BorrowingService) OverdueForAlert(
	ctx context.Context,
	deadline time.Time,
	limit uint,
) ([]repoargs.OverdueBorrowing, error) {
	overdue, err := s.borrowingRepo.GetOverdue(ctx, deadline, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return overdue, nil
}
