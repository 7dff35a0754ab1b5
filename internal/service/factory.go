package service

import (
	"fmt"

	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type AppServices struct {
	UserService      *UserService
	BookService      *BookService
	BorrowingService *BorrowingService
	PaymentService   *PaymentService
}

type FactoryArgs struct {
	JWTSecret []byte
	Gateway   CheckoutGateway
	Notifier  Notifier
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, args.JWTSecret)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	bookService, bookServiceErr := NewBookService(unitOfWork)
	if bookServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", bookServiceErr.Error())
	}

	borrowingService, borrowingServiceErr := NewBorrowingService(unitOfWork, args.Gateway, args.Notifier)
	if borrowingServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", borrowingServiceErr.Error())
	}

	paymentService, paymentServiceErr := NewPaymentService(unitOfWork, args.Gateway)
	if paymentServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", paymentServiceErr.Error())
	}

	return &AppServices{
		UserService:      userService,
		BookService:      bookService,
		BorrowingService: borrowingService,
		PaymentService:   paymentService,
	}, nil
}
