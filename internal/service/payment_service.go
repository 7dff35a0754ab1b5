package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type PaymentService struct {
	uow         uow.UOW
	paymentRepo PaymentRepository
	userRepo    UserRepository
	gateway     CheckoutGateway
}

func NewPaymentService(u uow.UOW, gateway CheckoutGateway) (*PaymentService, error) {
	paymentRepo, paymentRepoErr :=
		uow.GetRepositoryAs[PaymentRepository](u, uow.RepositoryName(repoargs.PaymentRepoName))
	if paymentRepoErr != nil {
		return nil, paymentRepoErr
	}
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &PaymentService{
		uow:         u,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		gateway:     gateway,
	}, nil
}

// HandleCheckoutEvent обрабатывает верифицированное событие платежного шлюза.
//
// Обрабатывается только пара "checkout.session.completed" + payment_status=paid, все
// остальные события подтверждаются без действий (nil, nil). Обработчик идемпотентен:
// повторная доставка того же события повторно переведет платеж в PAID и не создаст
// дублей. Платеж ищется по session id; отсутствие дает domain.ErrRecordNotFound.
func (s *PaymentService) HandleCheckoutEvent(ctx context.Context, event *checkout.Event) (*domain.Payment, error) {
	if event.Type != checkout.EventCheckoutSessionCompleted {
		return nil, nil //nolint:nilnil
	}
	if event.Data.Object.PaymentStatus != checkout.SessionPaymentStatusPaid {
		return nil, nil //nolint:nilnil
	}

	payment, err := s.paymentRepo.MarkPaidBySessionID(ctx, event.Data.Object.ID)
	if err != nil {
		return nil, fmt.Errorf("handling checkout event: %w", err)
	}
	return payment, nil
}

// CheckSessionStatus синхронно опрашивает шлюз о состоянии сессии платежа. Fallback
// на случай, когда вебхук еще не доставлен: если шлюз подтверждает оплату, платеж
// переводится в PAID тем же идемпотентным путем, что и вебхук.
//
// Видимость как у Get: чужой платеж доступен только staff-юзеру.
func (s *PaymentService) CheckSessionStatus(ctx context.Context, actorID, paymentID int64) (*domain.Payment, error) {
	payment, err := s.Get(ctx, actorID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentStatusPaid {
		return payment, nil
	}

	session, sessionErr := s.gateway.GetSession(ctx, payment.SessionID)
	if sessionErr != nil {
		return nil, fmt.Errorf("checking session status: %w", sessionErr)
	}
	if session.PaymentStatus != checkout.SessionPaymentStatusPaid {
		return payment, nil
	}

	paid, markErr := s.paymentRepo.MarkPaidBySessionID(ctx, payment.SessionID)
	if markErr != nil {
		return nil, fmt.Errorf("checking session status: %w", markErr)
	}
	return paid, nil
}

// List возвращает платежи. Staff-юзер видит все, остальные только по своим займам.
func (s *PaymentService) List(ctx context.Context, actorID int64) ([]domain.Payment, error) {
	actor, actorErr := s.userRepo.FindUserByID(ctx, actorID)
	if actorErr != nil {
		return nil, actorErr //nolint:wrapcheck
	}

	if canViewAll(actor) {
		payments, err := s.paymentRepo.GetAll(ctx)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		return payments, nil
	}

	payments, err := s.paymentRepo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return payments, nil
}

// Get возвращает платеж по id с проверкой владения через заем.
func (s *PaymentService) Get(ctx context.Context, actorID, paymentID int64) (*domain.Payment, error) {
	actor, actorErr := s.userRepo.FindUserByID(ctx, actorID)
	if actorErr != nil {
		return nil, actorErr //nolint:wrapcheck
	}

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if canViewAll(actor) {
		return payment, nil
	}

	// платеж принадлежит юзеру если принадлежит его займу.
	owned, ownedErr := s.paymentRepo.ExistsForUser(ctx, payment.ID, actor.ID)
	if ownedErr != nil {
		return nil, ownedErr //nolint:wrapcheck
	}
	if !owned {
		return nil, domain.ErrForbidden
	}
	return payment, nil
}
