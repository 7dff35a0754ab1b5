package app

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"

	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
	"github.com/fsdevblog/groph-lend/internal/transport/notify"

	"github.com/fsdevblog/groph-lend/pkg/uow"

	"github.com/fsdevblog/groph-lend/internal/config"
	"github.com/fsdevblog/groph-lend/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-lend/internal/service"
	"github.com/fsdevblog/groph-lend/internal/transport/api"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	"os/signal"
	"syscall"

	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app on %s", a.Config.RunAddress)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	gateway := checkout.New(
		a.Config.CheckoutAPIURL,
		a.Config.CheckoutAPIKey,
		a.Config.CheckoutSuccessURL,
		a.Config.CheckoutCancelURL,
	)

	messenger := notify.New(a.Config.NotifyAPIURL, a.Config.NotifyBotToken, a.Config.NotifyChatID)
	dispatcher := notify.NewDispatcher(messenger, a.Logger)

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		JWTSecret: []byte(a.Config.JWTUserSecret),
		Gateway:   gateway,
		Notifier:  dispatcher,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router := api.New(api.RouterArgs{
		Logger:           a.Logger,
		UserService:      services.UserService,
		BookService:      services.BookService,
		BorrowingService: services.BorrowingService,
		PaymentService:   services.PaymentService,
		JWTSecretKey:     []byte(a.Config.JWTUserSecret),
		WebhookSecret:    []byte(a.Config.CheckoutWebhookSecret),
	})

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	processor := notify.NewProcessor(services.BorrowingService, dispatcher, a.Logger).
		SetLimitPerIteration(50) //nolint:mnd

	go processor.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// user repo
	userRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewUserRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.UserRepoName), userRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// book repo
	bookRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewBookRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.BookRepoName), bookRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// borrowing repo
	borrowingRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewBorrowingRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.BorrowingRepoName),
		borrowingRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// payment repo
	paymentRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewPaymentRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.PaymentRepoName), paymentRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
