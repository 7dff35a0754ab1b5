package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type BookService struct {
	uow      uow.UOW
	bookRepo BookRepository
}

func NewBookService(u uow.UOW) (*BookService, error) {
	bookRepo, bookRepoErr := uow.GetRepositoryAs[BookRepository](u, uow.RepositoryName(repoargs.BookRepoName))
	if bookRepoErr != nil {
		return nil, bookRepoErr
	}
	return &BookService{
		uow:      u,
		bookRepo: bookRepo,
	}, nil
}

type BookArgs struct {
	Title     string
	Author    string
	Cover     domain.CoverType
	Inventory int32
	DailyFee  decimal.Decimal
}

func (a BookArgs) validate() error {
	if a.Title == "" || a.Author == "" {
		return fmt.Errorf("%w: title and author are required", domain.ErrValidation)
	}
	if !a.Cover.Valid() {
		return fmt.Errorf("%w: unknown cover type %q", domain.ErrValidation, a.Cover)
	}
	if a.Inventory < 0 {
		return fmt.Errorf("%w: inventory can not be negative", domain.ErrValidation)
	}
	if a.DailyFee.IsNegative() {
		return fmt.Errorf("%w: daily fee can not be negative", domain.ErrValidation)
	}
	return nil
}

func (s *BookService) Create(ctx context.Context, args BookArgs) (*domain.Book, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	book, err := s.bookRepo.Create(ctx, repoargs.CreateBook{
		Title:     args.Title,
		Author:    args.Author,
		Cover:     args.Cover,
		Inventory: args.Inventory,
		DailyFee:  args.DailyFee,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return book, nil
}

func (s *BookService) Update(ctx context.Context, id int64, args BookArgs) (*domain.Book, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	book, err := s.bookRepo.Update(ctx, repoargs.UpdateBook{
		ID:        id,
		Title:     args.Title,
		Author:    args.Author,
		Cover:     args.Cover,
		Inventory: args.Inventory,
		DailyFee:  args.DailyFee,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return book, nil
}

func (s *BookService) Delete(ctx context.Context, id int64) error {
	return s.bookRepo.Delete(ctx, id) //nolint:wrapcheck
}

func (s *BookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return book, nil
}

func (s *BookService) List(ctx context.Context) ([]domain.Book, error) {
	books, err := s.bookRepo.GetAll(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return books, nil
}
