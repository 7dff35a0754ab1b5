package service

import (
	"context"
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

type PaymentServiceTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockUOW         *uowmocks.MockUOW
	mockUserRepo    *mocks.MockUserRepository
	mockPaymentRepo *mocks.MockPaymentRepository
	mockGateway     *mocks.MockCheckoutGateway
	paymentService  *PaymentService
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockPaymentRepo = mocks.NewMockPaymentRepository(s.mockCtrl)
	s.mockGateway = mocks.NewMockCheckoutGateway(s.mockCtrl)

	// Мок получения репозиториев из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.PaymentRepoName)).
		Return(s.mockPaymentRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()

	// Инициализация сервиса.
	paymentService, servErr := NewPaymentService(s.mockUOW, s.mockGateway)
	s.Require().NoError(servErr)
	s.paymentService = paymentService
}

func (s *PaymentServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *PaymentServiceTestSuite) testPayment(sessionID string, status domain.PaymentStatusType) *domain.Payment {
	return &domain.Payment{
		ID:          200,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		BorrowingID: 100,
		Status:      status,
		Kind:        domain.PaymentKindPayment,
		SessionID:   sessionID,
		SessionURL:  "https://checkout.example.com/pay/" + sessionID,
		Amount:      decimal.RequireFromString("17.50"),
	}
}

func (s *PaymentServiceTestSuite) TestHandleCheckoutEvent() {
	sessionID := "cs_test_123"
	paid := s.testPayment(sessionID, domain.PaymentStatusPaid)

	event := &checkout.Event{
		Type: checkout.EventCheckoutSessionCompleted,
		Data: checkout.EventData{
			Object: checkout.EventObject{
				ID:            sessionID,
				PaymentStatus: checkout.SessionPaymentStatusPaid,
			},
		},
	}

	// Повторная доставка того же события безопасна: UPDATE по session_id
	// идемпотентен и оба раза возвращает PAID платеж.
	s.mockPaymentRepo.EXPECT().MarkPaidBySessionID(gomock.Any(), sessionID).
		Return(paid, nil).Times(2)

	first, firstErr := s.paymentService.HandleCheckoutEvent(context.Background(), event)
	s.Require().NoError(firstErr)
	s.Equal(domain.PaymentStatusPaid, first.Status)

	replay, replayErr := s.paymentService.HandleCheckoutEvent(context.Background(), event)
	s.Require().NoError(replayErr)
	s.Equal(domain.PaymentStatusPaid, replay.Status)
}

func (s *PaymentServiceTestSuite) TestHandleCheckoutEventIgnoresOtherEvents() {
	cases := []struct {
		name  string
		event *checkout.Event
	}{
		{
			name: "unknown event type",
			event: &checkout.Event{
				Type: "checkout.session.expired",
				Data: checkout.EventData{Object: checkout.EventObject{
					ID:            "cs_test_123",
					PaymentStatus: checkout.SessionPaymentStatusPaid,
				}},
			},
		},
		{
			name: "session completed but unpaid",
			event: &checkout.Event{
				Type: checkout.EventCheckoutSessionCompleted,
				Data: checkout.EventData{Object: checkout.EventObject{
					ID:            "cs_test_123",
					PaymentStatus: "unpaid",
				}},
			},
		},
	}

	s.mockPaymentRepo.EXPECT().MarkPaidBySessionID(gomock.Any(), gomock.Any()).Times(0)

	for _, c := range cases {
		s.Run(c.name, func() {
			payment, err := s.paymentService.HandleCheckoutEvent(context.Background(), c.event)
			s.NoError(err)
			s.Nil(payment)
		})
	}
}

func (s *PaymentServiceTestSuite) TestHandleCheckoutEventUnknownSession() {
	event := &checkout.Event{
		Type: checkout.EventCheckoutSessionCompleted,
		Data: checkout.EventData{Object: checkout.EventObject{
			ID:            "cs_unknown",
			PaymentStatus: checkout.SessionPaymentStatusPaid,
		}},
	}

	s.mockPaymentRepo.EXPECT().MarkPaidBySessionID(gomock.Any(), "cs_unknown").
		Return(nil, domain.ErrRecordNotFound)

	_, err := s.paymentService.HandleCheckoutEvent(context.Background(), event)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *PaymentServiceTestSuite) TestCheckSessionStatusMarksPaid() {
	var userID int64 = 1
	owner := &domain.User{ID: userID}
	sessionID := "cs_test_123"

	pending := s.testPayment(sessionID, domain.PaymentStatusPending)
	paid := s.testPayment(sessionID, domain.PaymentStatusPaid)

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(owner, nil)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil)
	s.mockPaymentRepo.EXPECT().ExistsForUser(gomock.Any(), pending.ID, userID).Return(true, nil)

	// Шлюз подтверждает оплату раньше, чем дошел вебхук.
	s.mockGateway.EXPECT().GetSession(gomock.Any(), sessionID).
		Return(&checkout.Session{ID: sessionID, PaymentStatus: checkout.SessionPaymentStatusPaid}, nil)
	s.mockPaymentRepo.EXPECT().MarkPaidBySessionID(gomock.Any(), sessionID).Return(paid, nil)

	result, err := s.paymentService.CheckSessionStatus(context.Background(), userID, pending.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, result.Status)
}

func (s *PaymentServiceTestSuite) TestCheckSessionStatusStillPending() {
	var userID int64 = 1
	owner := &domain.User{ID: userID}
	sessionID := "cs_test_123"

	pending := s.testPayment(sessionID, domain.PaymentStatusPending)

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(owner, nil)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil)
	s.mockPaymentRepo.EXPECT().ExistsForUser(gomock.Any(), pending.ID, userID).Return(true, nil)

	s.mockGateway.EXPECT().GetSession(gomock.Any(), sessionID).
		Return(&checkout.Session{ID: sessionID, PaymentStatus: "unpaid"}, nil)
	s.mockPaymentRepo.EXPECT().MarkPaidBySessionID(gomock.Any(), gomock.Any()).Times(0)

	result, err := s.paymentService.CheckSessionStatus(context.Background(), userID, pending.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPending, result.Status)
}

func (s *PaymentServiceTestSuite) TestCheckSessionStatusAlreadyPaidSkipsGateway() {
	var userID int64 = 1
	owner := &domain.User{ID: userID}
	paid := s.testPayment("cs_test_123", domain.PaymentStatusPaid)

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), userID).Return(owner, nil)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), paid.ID).Return(paid, nil)
	s.mockPaymentRepo.EXPECT().ExistsForUser(gomock.Any(), paid.ID, userID).Return(true, nil)

	s.mockGateway.EXPECT().GetSession(gomock.Any(), gomock.Any()).Times(0)

	result, err := s.paymentService.CheckSessionStatus(context.Background(), userID, paid.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, result.Status)
}

func (s *PaymentServiceTestSuite) TestGetForbiddenForStranger() {
	var actorID int64 = 2
	actor := &domain.User{ID: actorID}
	payment := s.testPayment("cs_test_123", domain.PaymentStatusPending)

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), actorID).Return(actor, nil)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), payment.ID).Return(payment, nil)
	// Платеж не принадлежит займам юзера.
	s.mockPaymentRepo.EXPECT().ExistsForUser(gomock.Any(), payment.ID, actorID).Return(false, nil)

	_, err := s.paymentService.Get(context.Background(), actorID, payment.ID)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrForbidden)
}

func (s *PaymentServiceTestSuite) TestGetOwnerSeesOwnPayment() {
	var actorID int64 = 1
	actor := &domain.User{ID: actorID}
	payment := s.testPayment("cs_test_123", domain.PaymentStatusPending)

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), actorID).Return(actor, nil)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), payment.ID).Return(payment, nil)
	s.mockPaymentRepo.EXPECT().ExistsForUser(gomock.Any(), payment.ID, actorID).Return(true, nil)
	// Проверка владения не должна тянуть весь список платежей юзера.
	s.mockPaymentRepo.EXPECT().GetByUserID(gomock.Any(), gomock.Any()).Times(0)

	result, err := s.paymentService.Get(context.Background(), actorID, payment.ID)
	s.Require().NoError(err)
	s.Equal(payment.ID, result.ID)
}

func (s *PaymentServiceTestSuite) TestListStaffSeesAll() {
	var actorID int64 = 1
	staff := &domain.User{ID: actorID, IsStaff: true}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), actorID).Return(staff, nil)
	s.mockPaymentRepo.EXPECT().GetAll(gomock.Any()).
		Return([]domain.Payment{{ID: 1}, {ID: 2}}, nil)
	s.mockPaymentRepo.EXPECT().GetByUserID(gomock.Any(), gomock.Any()).Times(0)

	payments, err := s.paymentService.List(context.Background(), actorID)
	s.Require().NoError(err)
	s.Len(payments, 2)
}
