package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/service"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
)

type BorrowingsHandler struct {
	borrowingSvs BorrowingServicer
}

func NewBorrowingsHandler(borrowingSvs BorrowingServicer) *BorrowingsHandler {
	return &BorrowingsHandler{
		borrowingSvs: borrowingSvs,
	}
}

type BorrowingCreateParams struct {
	BookID             int64  `binding:"required,gt=0" json:"book_id"`
	BorrowDate         string `binding:"required"      json:"borrow_date"`
	ExpectedReturnDate string `binding:"required"      json:"expected_return_date"`
}

type BorrowingResponse struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	BookID             int64     `json:"book_id"`
	BorrowDate         string    `json:"borrow_date"`
	ExpectedReturnDate string    `json:"expected_return_date"`
	ActualReturnDate   *string   `json:"actual_return_date"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

const dateLayout = "2006-01-02"

func newBorrowingResponse(b *domain.Borrowing) BorrowingResponse {
	var actualReturn *string
	if b.ActualReturnDate != nil {
		formatted := b.ActualReturnDate.Format(dateLayout)
		actualReturn = &formatted
	}
	return BorrowingResponse{
		ID:                 b.ID,
		UserID:             b.UserID,
		BookID:             b.BookID,
		BorrowDate:         b.BorrowDate.Format(dateLayout),
		ExpectedReturnDate: b.ExpectedReturnDate.Format(dateLayout),
		ActualReturnDate:   actualReturn,
		IsActive:           b.IsActive(),
		CreatedAt:          b.CreatedAt,
	}
}

// Create POST RouteGroup + BorrowingsRoute. Оформляет заем и возвращает ссылку
// на оплату.
func (h *BorrowingsHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params BorrowingCreateParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	borrowDate, borrowDateErr := time.Parse(dateLayout, params.BorrowDate)
	expectedReturn, expectedReturnErr := time.Parse(dateLayout, params.ExpectedReturnDate)
	if borrowDateErr != nil || expectedReturnErr != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "dates must use YYYY-MM-DD format"})
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, err := h.borrowingSvs.Create(ctx, currentUserID, service.CreateBorrowingArgs{
		BookID:             params.BookID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expectedReturn,
	})
	if err != nil {
		h.abortWithBorrowingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"borrowing":   newBorrowingResponse(result.Borrowing),
		"payment_url": result.Payment.SessionURL,
	})
}

// Index GET RouteGroup + BorrowingsRoute. Фильтры user_id и is_active действуют
// только для staff-юзеров, остальные всегда видят свои займы.
func (h *BorrowingsHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var filter repoargs.BorrowingFilter
	if rawUserID := c.Query("user_id"); rawUserID != "" {
		userID, err := strconv.ParseInt(rawUserID, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
			return
		}
		filter.UserID = &userID
	}
	if rawIsActive := c.Query("is_active"); rawIsActive != "" {
		isActive, err := strconv.ParseBool(rawIsActive)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "is_active must be a boolean"})
			return
		}
		filter.IsActive = &isActive
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	borrowings, err := h.borrowingSvs.List(ctx, currentUserID, filter)
	if err != nil {
		h.abortWithBorrowingError(c, err)
		return
	}

	response := make([]BorrowingResponse, len(borrowings))
	for i := range borrowings {
		response[i] = newBorrowingResponse(&borrowings[i])
	}

	c.JSON(http.StatusOK, gin.H{"borrowings": response})
}

// Show GET RouteGroup + BorrowingRoute.
func (h *BorrowingsHandler) Show(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	borrowing, err := h.borrowingSvs.Get(ctx, getUserIDFromContext(c), id)
	if err != nil {
		h.abortWithBorrowingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"borrowing": newBorrowingResponse(borrowing)})
}

// Return POST RouteGroup + BorrowingReturn. Закрывает заем. Просроченный возврат
// дополнительно возвращает сумму штрафа и ссылку на его оплату.
func (h *BorrowingsHandler) Return(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, err := h.borrowingSvs.Return(ctx, getUserIDFromContext(c), id)
	if err != nil {
		h.abortWithBorrowingError(c, err)
		return
	}

	if result.Fine != nil {
		c.JSON(http.StatusOK, gin.H{
			"message":     "borrowing returned, overdue fine issued",
			"fine_amount": result.Fine.Amount.StringFixed(2),
			"payment_url": result.Fine.SessionURL,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "borrowing returned"})
}

func (h *BorrowingsHandler) abortWithBorrowingError(c *gin.Context, err error) {
	var activeErr *domain.ActiveBorrowingError
	var statusErr *checkout.StatusCodeError

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	case errors.Is(err, domain.ErrValidation):
		_ = c.AbortWithError(http.StatusUnprocessableEntity, err).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrOutOfStock):
		_ = c.AbortWithError(http.StatusConflict, errors.New("book is out of stock")).
			SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrAlreadyReturned):
		_ = c.AbortWithError(http.StatusConflict, errors.New("borrowing already returned")).
			SetType(gin.ErrorTypePublic)
	case errors.As(err, &activeErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":               "user already has an active borrowing",
			"active_borrowing_id": activeErr.Borrowing.ID,
		})
	case errors.As(err, &statusErr):
		_ = c.AbortWithError(http.StatusBadGateway, err).SetType(gin.ErrorTypePrivate)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}
