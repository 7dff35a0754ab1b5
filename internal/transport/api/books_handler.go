package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/service"
)

type BooksHandler struct {
	bookSvs BookServicer
	userSvs UserServicer
}

func NewBooksHandler(bookSvs BookServicer, userSvs UserServicer) *BooksHandler {
	return &BooksHandler{
		bookSvs: bookSvs,
		userSvs: userSvs,
	}
}

type BookParams struct {
	Title     string          `binding:"required,max=255"         json:"title"`
	Author    string          `binding:"required,max=255"         json:"author"`
	Cover     string          `binding:"required,oneof=HARD SOFT" json:"cover"`
	Inventory int32           `binding:"gte=0"                    json:"inventory"`
	DailyFee  decimal.Decimal `binding:"required"                 json:"daily_fee"`
}

type BookResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Cover     string    `json:"cover"`
	Inventory int32     `json:"inventory"`
	DailyFee  string    `json:"daily_fee"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBookResponse(book *domain.Book) BookResponse {
	return BookResponse{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Cover:     string(book.Cover),
		Inventory: book.Inventory,
		DailyFee:  book.DailyFee.StringFixed(2),
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
}

// requireStaff пропускает дальше только staff-юзера.
func (h *BooksHandler) requireStaff(c *gin.Context) bool {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userSvs.Me(ctx, getUserIDFromContext(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return false
	}
	if !user.IsStaff {
		_ = c.AbortWithError(http.StatusForbidden, errors.New("staff only")).
			SetType(gin.ErrorTypePublic)
		return false
	}
	return true
}

func (h *BooksHandler) bindBookParams(c *gin.Context) (*BookParams, bool) {
	var params BookParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
			return nil, false
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return nil, false
	}
	return &params, true
}

// Create POST RouteGroup + BooksRoute. Только для staff-юзеров.
func (h *BooksHandler) Create(c *gin.Context) {
	if !h.requireStaff(c) {
		return
	}
	params, ok := h.bindBookParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	book, err := h.bookSvs.Create(ctx, service.BookArgs{
		Title:     params.Title,
		Author:    params.Author,
		Cover:     domain.CoverType(params.Cover),
		Inventory: params.Inventory,
		DailyFee:  params.DailyFee,
	})
	if err != nil {
		h.abortWithBookError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"book": newBookResponse(book)})
}

// Update PUT RouteGroup + BookRoute. Только для staff-юзеров.
func (h *BooksHandler) Update(c *gin.Context) {
	if !h.requireStaff(c) {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	params, paramsOk := h.bindBookParams(c)
	if !paramsOk {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	book, err := h.bookSvs.Update(ctx, id, service.BookArgs{
		Title:     params.Title,
		Author:    params.Author,
		Cover:     domain.CoverType(params.Cover),
		Inventory: params.Inventory,
		DailyFee:  params.DailyFee,
	})
	if err != nil {
		h.abortWithBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"book": newBookResponse(book)})
}

// Delete DELETE RouteGroup + BookRoute. Только для staff-юзеров.
func (h *BooksHandler) Delete(c *gin.Context) {
	if !h.requireStaff(c) {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.bookSvs.Delete(ctx, id); err != nil {
		h.abortWithBookError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Show GET RouteGroup + BookRoute. Доступен без авторизации.
func (h *BooksHandler) Show(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	book, err := h.bookSvs.Get(ctx, id)
	if err != nil {
		h.abortWithBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"book": newBookResponse(book)})
}

// Index GET RouteGroup + BooksRoute. Доступен без авторизации.
func (h *BooksHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	books, err := h.bookSvs.List(ctx)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	response := make([]BookResponse, len(books))
	for i := range books {
		response[i] = newBookResponse(&books[i])
	}

	c.JSON(http.StatusOK, gin.H{"books": response})
}

func (h *BooksHandler) abortWithBookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation):
		_ = c.AbortWithError(http.StatusUnprocessableEntity, err).SetType(gin.ErrorTypePublic)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}
