package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-lend/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup          = "/api"
	RegisterRoute       = "/user/register"
	LoginRoute          = "/user/login"
	MeRoute             = "/user/me"
	BooksRoute          = "/books"
	BookRoute           = "/books/:id"
	BorrowingsRoute     = "/borrowings"
	BorrowingRoute      = "/borrowings/:id"
	BorrowingReturn     = "/borrowings/:id/return"
	PaymentsRoute       = "/payments"
	PaymentRoute        = "/payments/:id"
	PaymentCheckRoute   = "/payments/:id/check"
	CheckoutWebhookPath = "/payments/webhooks/checkout"
)

type RouterArgs struct {
	Logger           *logrus.Logger
	UserService      UserServicer
	BookService      BookServicer
	BorrowingService BorrowingServicer
	PaymentService   PaymentServicer
	JWTSecretKey     []byte
	WebhookSecret    []byte
}

func New(args RouterArgs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService)
	booksHandler := NewBooksHandler(args.BookService, args.UserService)
	borrowingsHandler := NewBorrowingsHandler(args.BorrowingService)
	paymentsHandler := NewPaymentsHandler(args.PaymentService, args.WebhookSecret)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	// Вебхук шлюза приходит без авторизации, его аутентичность подтверждает подпись.
	api.POST(CheckoutWebhookPath, paymentsHandler.Webhook)

	api.GET(BooksRoute, booksHandler.Index)
	api.GET(BookRoute, booksHandler.Show)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.GET(MeRoute, authHandler.Me)

	api.POST(BooksRoute, booksHandler.Create)
	api.PUT(BookRoute, booksHandler.Update)
	api.DELETE(BookRoute, booksHandler.Delete)

	api.POST(BorrowingsRoute, borrowingsHandler.Create)
	api.GET(BorrowingsRoute, borrowingsHandler.Index)
	api.GET(BorrowingRoute, borrowingsHandler.Show)
	api.POST(BorrowingReturn, borrowingsHandler.Return)

	api.GET(PaymentsRoute, paymentsHandler.Index)
	api.GET(PaymentRoute, paymentsHandler.Show)
	api.POST(PaymentCheckRoute, paymentsHandler.CheckStatus)
	return r
}
