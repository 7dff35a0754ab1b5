package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/service/mocks"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
	"github.com/fsdevblog/groph-lend/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-lend/pkg/uow/mocks"
)

type BorrowingServiceTestSuite struct {
	suite.Suite
	mockCtrl          *gomock.Controller
	mockUOW           *uowmocks.MockUOW
	mockTX            *uowmocks.MockTX
	mockUserRepo      *mocks.MockUserRepository
	mockBookRepo      *mocks.MockBookRepository
	mockBorrowingRepo *mocks.MockBorrowingRepository
	mockPaymentRepo   *mocks.MockPaymentRepository
	mockGateway       *mocks.MockCheckoutGateway
	mockNotifier      *mocks.MockNotifier
	borrowingService  *BorrowingService
}

func TestBorrowingServiceSuite(t *testing.T) {
	suite.Run(t, new(BorrowingServiceTestSuite))
}

func (s *BorrowingServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockBookRepo = mocks.NewMockBookRepository(s.mockCtrl)
	s.mockBorrowingRepo = mocks.NewMockBorrowingRepository(s.mockCtrl)
	s.mockPaymentRepo = mocks.NewMockPaymentRepository(s.mockCtrl)
	s.mockGateway = mocks.NewMockCheckoutGateway(s.mockCtrl)
	s.mockNotifier = mocks.NewMockNotifier(s.mockCtrl)

	// Мок получения репозиториев из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.BorrowingRepoName)).
		Return(s.mockBorrowingRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()

	// Мок получения репозиториев из транзакции.
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.BookRepoName)).
		Return(s.mockBookRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.BorrowingRepoName)).
		Return(s.mockBorrowingRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.PaymentRepoName)).
		Return(s.mockPaymentRepo, nil).AnyTimes()

	// Инициализация сервиса.
	borrowingService, servErr := NewBorrowingService(s.mockUOW, s.mockGateway, s.mockNotifier)
	s.Require().NoError(servErr)
	s.borrowingService = borrowingService
}

func (s *BorrowingServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectDo пропускает коллбек uow.Do через мок транзакции.
func (s *BorrowingServiceTestSuite) expectDo() {
	s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *BorrowingServiceTestSuite) testUser(id int64, isStaff bool) *domain.User {
	return &domain.User{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Email:     "reader@example.com",
		IsStaff:   isStaff,
	}
}

func (s *BorrowingServiceTestSuite) testBook(id int64, dailyFee string) *domain.Book {
	return &domain.Book{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Title:     "The Go Programming Language",
		Author:    "Donovan, Kernighan",
		Cover:     domain.CoverHard,
		Inventory: 3,
		DailyFee:  decimal.RequireFromString(dailyFee),
	}
}

func (s *BorrowingServiceTestSuite) TestCreate() {
	var userID int64 = 1
	user := s.testUser(userID, false)
	book := s.testBook(10, "2.50")

	borrowDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expectedReturn := borrowDate.AddDate(0, 0, 7)

	args := CreateBorrowingArgs{
		BookID:             book.ID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expectedReturn,
	}

	borrowing := &domain.Borrowing{
		ID:                 100,
		UserID:             userID,
		BookID:             book.ID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expectedReturn,
	}

	session := &checkout.Session{
		ID:  "cs_test_123",
		URL: "https://checkout.example.com/pay/cs_test_123",
	}

	payment := &domain.Payment{
		ID:          200,
		BorrowingID: borrowing.ID,
		Status:      domain.PaymentStatusPending,
		Kind:        domain.PaymentKindPayment,
		SessionID:   session.ID,
		SessionURL:  session.URL,
		Amount:      decimal.RequireFromString("17.50"),
	}

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(user, nil)
	s.mockBookRepo.EXPECT().DecrementInventory(gomock.Any(), book.ID).Return(book, nil)
	s.mockBorrowingRepo.EXPECT().
		Create(gomock.Any(), repoargs.CreateBorrowing{
			UserID:             userID,
			BookID:             book.ID,
			BorrowDate:         borrowDate,
			ExpectedReturnDate: expectedReturn,
		}).
		Return(borrowing, nil)

	// Сумма к оплате: 2.50 за день × 7 дней.
	s.mockGateway.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args checkout.CreateSessionArgs) (*checkout.Session, error) {
			s.Equal("17.5", args.Amount.String())
			s.Equal(book.Title, args.ProductName)
			s.Equal("100", args.ReferenceID)
			return session, nil
		})

	s.mockPaymentRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreatePayment) (*domain.Payment, error) {
			s.Equal(borrowing.ID, args.BorrowingID)
			s.Equal(domain.PaymentStatusPending, args.Status)
			s.Equal(domain.PaymentKindPayment, args.Kind)
			s.Equal(session.ID, args.SessionID)
			return payment, nil
		})

	s.mockNotifier.EXPECT().BorrowingCreated(user, book, borrowing)

	result, err := s.borrowingService.Create(context.Background(), userID, args)
	s.Require().NoError(err)
	s.Equal(borrowing, result.Borrowing)
	s.Equal(payment, result.Payment)
}

func (s *BorrowingServiceTestSuite) TestCreateOutOfStock() {
	var userID int64 = 1
	user := s.testUser(userID, false)
	book := s.testBook(10, "2.50")
	book.Inventory = 0

	borrowDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(user, nil)
	// guarded update не зацепил строку, но книга существует: остаток нулевой.
	s.mockBookRepo.EXPECT().DecrementInventory(gomock.Any(), book.ID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockBookRepo.EXPECT().FindByID(gomock.Any(), book.ID).Return(book, nil)

	s.mockBorrowingRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.borrowingService.Create(context.Background(), userID, CreateBorrowingArgs{
		BookID:             book.ID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: borrowDate.AddDate(0, 0, 7),
	})
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrOutOfStock)
}

func (s *BorrowingServiceTestSuite) TestCreateActiveBorrowingExists() {
	var userID int64 = 1
	user := s.testUser(userID, false)
	book := s.testBook(10, "2.50")

	borrowDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	active := &domain.Borrowing{
		ID:     99,
		UserID: userID,
		BookID: 5,
	}

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(user, nil)
	s.mockBookRepo.EXPECT().DecrementInventory(gomock.Any(), book.ID).Return(book, nil)
	// Частичный уникальный индекс по user_id ловит второй активный заем.
	s.mockBorrowingRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrDuplicateKey)
	s.mockBorrowingRepo.EXPECT().FindActiveByUserID(gomock.Any(), userID).Return(active, nil)

	s.mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.borrowingService.Create(context.Background(), userID, CreateBorrowingArgs{
		BookID:             book.ID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: borrowDate.AddDate(0, 0, 7),
	})
	s.Require().Error(err)

	var activeErr *domain.ActiveBorrowingError
	s.Require().ErrorAs(err, &activeErr)
	s.Equal(active.ID, activeErr.Borrowing.ID)
}

func (s *BorrowingServiceTestSuite) TestCreateGatewayFailureAbortsTransaction() {
	var userID int64 = 1
	user := s.testUser(userID, false)
	book := s.testBook(10, "2.50")

	borrowDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	borrowing := &domain.Borrowing{ID: 100, UserID: userID, BookID: book.ID}
	gatewayErr := errors.New("bad gateway")

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(user, nil)
	s.mockBookRepo.EXPECT().DecrementInventory(gomock.Any(), book.ID).Return(book, nil)
	s.mockBorrowingRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(borrowing, nil)
	s.mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(nil, gatewayErr)

	// Платеж не создается, уведомление не уходит, ошибка откатывает транзакцию.
	s.mockPaymentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockNotifier.EXPECT().BorrowingCreated(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.borrowingService.Create(context.Background(), userID, CreateBorrowingArgs{
		BookID:             book.ID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: borrowDate.AddDate(0, 0, 7),
	})
	s.Require().Error(err)
	s.ErrorIs(err, gatewayErr)
}

func (s *BorrowingServiceTestSuite) TestCreateInvalidDates() {
	borrowDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.borrowingService.Create(context.Background(), 1, CreateBorrowingArgs{
		BookID:             10,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: borrowDate,
	})
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrValidation)
}

func (s *BorrowingServiceTestSuite) TestReturnOnTime() {
	var userID int64 = 1
	actor := s.testUser(userID, false)
	book := s.testBook(10, "1.50")

	borrowing := &domain.Borrowing{
		ID:                 100,
		UserID:             userID,
		BookID:             book.ID,
		BorrowDate:         time.Now().AddDate(0, 0, -3),
		ExpectedReturnDate: time.Now().AddDate(0, 0, 4),
	}
	returnedAt := time.Now().UTC()
	returned := &domain.Borrowing{
		ID:                 borrowing.ID,
		UserID:             borrowing.UserID,
		BookID:             borrowing.BookID,
		BorrowDate:         borrowing.BorrowDate,
		ExpectedReturnDate: borrowing.ExpectedReturnDate,
		ActualReturnDate:   &returnedAt,
	}

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(actor, nil)
	s.mockBorrowingRepo.EXPECT().FindByIDForUpdate(gomock.Any(), borrowing.ID).Return(borrowing, nil)
	s.mockBorrowingRepo.EXPECT().MarkReturned(gomock.Any(), borrowing.ID, gomock.Any()).Return(returned, nil)
	s.mockBookRepo.EXPECT().IncrementInventory(gomock.Any(), book.ID).Return(book, nil)

	// Возврат в срок штрафа не создает.
	s.mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Times(0)
	s.mockPaymentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	result, err := s.borrowingService.Return(context.Background(), userID, borrowing.ID)
	s.Require().NoError(err)
	s.Equal(returned, result.Borrowing)
	s.Nil(result.Fine)
}

func (s *BorrowingServiceTestSuite) TestReturnOverdueCreatesFine() {
	var userID int64 = 1
	actor := s.testUser(userID, false)
	book := s.testBook(10, "1.50")

	// Срок возврата прошел два дня назад.
	borrowing := &domain.Borrowing{
		ID:                 100,
		UserID:             userID,
		BookID:             book.ID,
		BorrowDate:         time.Now().AddDate(0, 0, -9),
		ExpectedReturnDate: time.Now().AddDate(0, 0, -2).Add(-time.Hour),
	}
	returnedAt := time.Now().UTC()
	returned := &domain.Borrowing{
		ID:                 borrowing.ID,
		UserID:             borrowing.UserID,
		BookID:             borrowing.BookID,
		BorrowDate:         borrowing.BorrowDate,
		ExpectedReturnDate: borrowing.ExpectedReturnDate,
		ActualReturnDate:   &returnedAt,
	}

	session := &checkout.Session{
		ID:  "cs_fine_456",
		URL: "https://checkout.example.com/pay/cs_fine_456",
	}
	fine := &domain.Payment{
		ID:          201,
		BorrowingID: borrowing.ID,
		Status:      domain.PaymentStatusPending,
		Kind:        domain.PaymentKindFine,
		SessionID:   session.ID,
		SessionURL:  session.URL,
		Amount:      decimal.RequireFromString("6.00"),
	}

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(actor, nil)
	s.mockBorrowingRepo.EXPECT().FindByIDForUpdate(gomock.Any(), borrowing.ID).Return(borrowing, nil)
	s.mockBorrowingRepo.EXPECT().MarkReturned(gomock.Any(), borrowing.ID, gomock.Any()).Return(returned, nil)
	s.mockBookRepo.EXPECT().IncrementInventory(gomock.Any(), book.ID).Return(book, nil)

	// Штраф: 1.50 за день × 2 дня просрочки × множитель 2.
	s.mockGateway.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args checkout.CreateSessionArgs) (*checkout.Session, error) {
			s.Equal("6", args.Amount.String())
			s.Contains(args.ProductName, "Fine payment")
			return session, nil
		})

	s.mockPaymentRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreatePayment) (*domain.Payment, error) {
			s.Equal(domain.PaymentKindFine, args.Kind)
			s.Equal(domain.PaymentStatusPending, args.Status)
			return fine, nil
		})

	result, err := s.borrowingService.Return(context.Background(), userID, borrowing.ID)
	s.Require().NoError(err)
	s.Require().NotNil(result.Fine)
	s.Equal(fine, result.Fine)
}

func (s *BorrowingServiceTestSuite) TestReturnAlreadyReturned() {
	var userID int64 = 1
	actor := s.testUser(userID, false)

	returnedAt := time.Now().AddDate(0, 0, -1)
	borrowing := &domain.Borrowing{
		ID:               100,
		UserID:           userID,
		BookID:           10,
		ActualReturnDate: &returnedAt,
	}

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(actor, nil)
	s.mockBorrowingRepo.EXPECT().FindByIDForUpdate(gomock.Any(), borrowing.ID).Return(borrowing, nil)

	// Повторный возврат не трогает ни заем, ни остаток.
	s.mockBorrowingRepo.EXPECT().MarkReturned(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockBookRepo.EXPECT().IncrementInventory(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.borrowingService.Return(context.Background(), userID, borrowing.ID)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrAlreadyReturned)
}

func (s *BorrowingServiceTestSuite) TestReturnForbiddenForStranger() {
	var actorID int64 = 2
	actor := s.testUser(actorID, false)

	borrowing := &domain.Borrowing{
		ID:                 100,
		UserID:             1,
		BookID:             10,
		ExpectedReturnDate: time.Now().AddDate(0, 0, 4),
	}

	s.expectDo()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), actorID).Return(actor, nil)
	s.mockBorrowingRepo.EXPECT().FindByIDForUpdate(gomock.Any(), borrowing.ID).Return(borrowing, nil)
	s.mockBorrowingRepo.EXPECT().MarkReturned(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.borrowingService.Return(context.Background(), actorID, borrowing.ID)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrForbidden)
}

func (s *BorrowingServiceTestSuite) TestListScopesNonStaffToOwnBorrowings() {
	var actorID int64 = 1
	actor := s.testUser(actorID, false)

	var strangerID int64 = 2
	filter := repoargs.BorrowingFilter{UserID: &strangerID}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), actorID).Return(actor, nil)
	s.mockBorrowingRepo.EXPECT().
		GetByFilter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f repoargs.BorrowingFilter) ([]domain.Borrowing, error) {
			// Фильтр по чужому юзеру принудительно заменен собственным id.
			s.Require().NotNil(f.UserID)
			s.Equal(actorID, *f.UserID)
			return []domain.Borrowing{}, nil
		})

	_, err := s.borrowingService.List(context.Background(), actorID, filter)
	s.Require().NoError(err)
}

func (s *BorrowingServiceTestSuite) TestListStaffSeesAll() {
	var actorID int64 = 1
	actor := s.testUser(actorID, true)

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), actorID).Return(actor, nil)
	s.mockBorrowingRepo.EXPECT().
		GetByFilter(gomock.Any(), repoargs.BorrowingFilter{}).
		Return([]domain.Borrowing{{ID: 1}, {ID: 2}}, nil)

	borrowings, err := s.borrowingService.List(context.Background(), actorID, repoargs.BorrowingFilter{})
	s.Require().NoError(err)
	s.Len(borrowings, 2)
}
