package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/transport/checkout"
)

type PaymentsHandler struct {
	paymentSvs    PaymentServicer
	webhookSecret []byte
}

func NewPaymentsHandler(paymentSvs PaymentServicer, webhookSecret []byte) *PaymentsHandler {
	return &PaymentsHandler{
		paymentSvs:    paymentSvs,
		webhookSecret: webhookSecret,
	}
}

type PaymentResponse struct {
	ID          int64     `json:"id"`
	BorrowingID int64     `json:"borrowing_id"`
	Status      string    `json:"status"`
	Kind        string    `json:"type"`
	SessionURL  string    `json:"session_url"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		BorrowingID: p.BorrowingID,
		Status:      string(p.Status),
		Kind:        string(p.Kind),
		SessionURL:  p.SessionURL,
		Amount:      p.Amount.StringFixed(2),
		CreatedAt:   p.CreatedAt,
	}
}

// Webhook POST RouteGroup + CheckoutWebhookPath. Принимает события платежного
// шлюза. Подпись тела обязательна, событие обрабатывается идемпотентно: шлюз
// может доставить его больше одного раза.
func (h *PaymentsHandler) Webhook(c *gin.Context) {
	payload, readErr := c.GetRawData()
	if readErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, readErr).SetType(gin.ErrorTypePrivate)
		return
	}

	event, eventErr := checkout.ConstructEvent(payload, c.GetHeader(checkout.SignatureHeader), h.webhookSecret)
	if eventErr != nil {
		_ = c.Error(eventErr).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if _, err := h.paymentSvs.HandleCheckoutEvent(ctx, event); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			// Сессия не наша. Подтверждаем, чтобы шлюз не ретраил доставку.
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// CheckStatus POST RouteGroup + PaymentCheckRoute. Синхронный опрос шлюза на случай,
// когда вебхук об оплате еще не дошел.
func (h *PaymentsHandler) CheckStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	payment, err := h.paymentSvs.CheckSessionStatus(ctx, getUserIDFromContext(c), id)
	if err != nil {
		var statusErr *checkout.StatusCodeError
		if errors.As(err, &statusErr) {
			_ = c.AbortWithError(http.StatusBadGateway, err).SetType(gin.ErrorTypePrivate)
			return
		}
		h.abortWithPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": newPaymentResponse(payment)})
}

// Index GET RouteGroup + PaymentsRoute.
func (h *PaymentsHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	payments, err := h.paymentSvs.List(ctx, getUserIDFromContext(c))
	if err != nil {
		h.abortWithPaymentError(c, err)
		return
	}

	response := make([]PaymentResponse, len(payments))
	for i := range payments {
		response[i] = newPaymentResponse(&payments[i])
	}

	c.JSON(http.StatusOK, gin.H{"payments": response})
}

// Show GET RouteGroup + PaymentRoute.
func (h *PaymentsHandler) Show(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	payment, err := h.paymentSvs.Get(ctx, getUserIDFromContext(c), id)
	if err != nil {
		h.abortWithPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": newPaymentResponse(payment)})
}

func (h *PaymentsHandler) abortWithPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}
