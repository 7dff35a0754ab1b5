package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/logger"
	"github.com/fsdevblog/groph-lend/internal/service/tokens"
	"github.com/fsdevblog/groph-lend/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-lend/internal/transport/api/testutils"
)

type BooksHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	mockBookService *mocks.MockBookServicer
	mockUserService *mocks.MockUserServicer
	jwtSecret       []byte
}

func TestBooksHandlerSuite(t *testing.T) {
	suite.Run(t, new(BooksHandlerTestSuite))
}

func (s *BooksHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockBookService = mocks.NewMockBookServicer(mockCtrl)
	s.mockUserService = mocks.NewMockUserServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	s.router = New(RouterArgs{
		Logger:        logger.New(os.Stdout),
		BookService:   s.mockBookService,
		UserService:   s.mockUserService,
		JWTSecretKey:  s.jwtSecret,
		WebhookSecret: []byte("webhook secret"),
	})
}

func (s *BooksHandlerTestSuite) userToken(userID int64) string {
	token, err := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

func (s *BooksHandlerTestSuite) TestIndexPublic() {
	books := []domain.Book{
		{
			ID:       1,
			Title:    "The Go Programming Language",
			Author:   "Donovan, Kernighan",
			Cover:    domain.CoverHard,
			DailyFee: decimal.RequireFromString("2.50"),
		},
	}
	s.mockBookService.EXPECT().List(gomock.Any()).Return(books, nil)

	// Каталог доступен без токена.
	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + BooksRoute,
	})
	s.Require().NoError(err)

	defer func() {
		closeErr := res.Body.Close()
		s.Require().NoError(closeErr)
	}()

	s.Require().Equal(http.StatusOK, res.StatusCode)

	var response struct {
		Books []BookResponse `json:"books"`
	}
	s.Require().NoError(json.NewDecoder(res.Body).Decode(&response))
	s.Require().Len(response.Books, 1)
	s.Equal("2.50", response.Books[0].DailyFee)
}

func (s *BooksHandlerTestSuite) TestCreateStaffOnly() {
	var staffID int64 = 1
	var readerID int64 = 2

	s.mockUserService.EXPECT().Me(gomock.Any(), staffID).
		Return(&domain.User{ID: staffID, IsStaff: true}, nil).AnyTimes()
	s.mockUserService.EXPECT().Me(gomock.Any(), readerID).
		Return(&domain.User{ID: readerID}, nil).AnyTimes()

	createdBook := &domain.Book{
		ID:       1,
		Title:    "Clean Architecture",
		Author:   "Martin",
		Cover:    domain.CoverSoft,
		DailyFee: decimal.RequireFromString("1.00"),
	}
	s.mockBookService.EXPECT().Create(gomock.Any(), gomock.Any()).Return(createdBook, nil)

	payload, marshalErr := json.Marshal(map[string]any{
		"title":     "Clean Architecture",
		"author":    "Martin",
		"cover":     "SOFT",
		"inventory": 5,
		"daily_fee": "1.00",
	})
	s.Require().NoError(marshalErr)

	cases := []struct {
		name       string
		jwtToken   string
		wantStatus int
	}{
		{
			name:       "staff creates book",
			jwtToken:   s.userToken(staffID),
			wantStatus: http.StatusCreated,
		}, {
			name:       "reader forbidden",
			jwtToken:   s.userToken(readerID),
			wantStatus: http.StatusForbidden,
		}, {
			name:       "anonymous unauthorized",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			reqOpts := []func(*testutils.RequestOptions){testutils.WithJSON()}
			if t.jwtToken != "" {
				reqOpts = append(reqOpts, testutils.WithBearerToken(t.jwtToken))
			}

			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + BooksRoute,
				Body:   bytes.NewReader(payload),
			}, reqOpts...)
			s.Require().NoError(err)

			defer func() {
				closeErr := res.Body.Close()
				s.Require().NoError(closeErr)
			}()

			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *BooksHandlerTestSuite) TestShowNotFound() {
	s.mockBookService.EXPECT().Get(gomock.Any(), int64(404)).
		Return(nil, domain.ErrRecordNotFound)

	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    "/api/books/404",
	})
	s.Require().NoError(err)

	defer func() {
		closeErr := res.Body.Close()
		s.Require().NoError(closeErr)
	}()

	s.Equal(http.StatusNotFound, res.StatusCode)
}
