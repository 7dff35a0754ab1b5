// Package checkout работает с внешним платежным шлюзом: создание checkout-сессий,
// проверка их статуса и разбор/верификация вебхук-событий.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RouteSessions = "/v1/checkout/sessions"
	RouteSession  = "/v1/checkout/sessions/%s"
)

// SessionPaymentStatusPaid значение payment_status в терминах шлюза.
const SessionPaymentStatusPaid = "paid"

const defaultHTTPTimeout = 10 * time.Second

// минорные единицы валюты: шлюз принимает суммы в центах.
const minorUnitsPerUnit = 100

// Session checkout-сессия шлюза. PaymentStatus заполняется только при чтении сессии.
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

type CreateSessionArgs struct {
	Amount      decimal.Decimal
	ProductName string
	ReferenceID string
}

type createSessionRequest struct {
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	ProductName string `json:"product_name"`
	ReferenceID string `json:"client_reference_id"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

// HTTPClient является реализацией клиента платежного шлюза поверх HTTP.
// Redirect URL'ы задаются один раз при создании: шлюз возвращает на них юзера
// после успешной или отмененной оплаты.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

func New(baseURL, apiKey, successURL, cancelURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// CreateSession создает checkout-сессию под указанную сумму. Сумма конвертируется
// в минорные единицы валюты. При ответе сервера со статусом отличным от
// http.StatusOK / http.StatusCreated возвращает ошибку *StatusCodeError.
//
//nolint:nonamedreturns
func (c *HTTPClient) CreateSession(ctx context.Context, args CreateSessionArgs) (session *Session, err error) {
	payload := createSessionRequest{
		AmountMinor: args.Amount.Mul(decimal.NewFromInt(minorUnitsPerUnit)).IntPart(),
		Currency:    "usd",
		ProductName: args.ProductName,
		ReferenceID: args.ReferenceID,
		SuccessURL:  c.successURL,
		CancelURL:   c.cancelURL,
	}

	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal request: %s", marshalErr.Error())
	}

	req, reqErr := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+RouteSessions, bytes.NewReader(body),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, NewStatusCodeError(resp.StatusCode)
	}

	session, err = parseSessionResponse(resp.Body)
	return session, err
}

// GetSession запрашивает у шлюза текущее состояние сессии. Используется как
// fallback когда вебхук еще не доставлен.
//
//nolint:nonamedreturns
func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (session *Session, err error) {
	url := c.baseURL + fmt.Sprintf(RouteSession, sessionID)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewStatusCodeError(resp.StatusCode)
	}

	session, err = parseSessionResponse(resp.Body)
	return session, err
}

func parseSessionResponse(r io.Reader) (*Session, error) {
	body, readErr := io.ReadAll(r)
	if readErr != nil {
		return nil, fmt.Errorf("read response: %s", readErr.Error())
	}

	var session Session
	if jsonErr := json.Unmarshal(body, &session); jsonErr != nil {
		return nil, fmt.Errorf("parse response: %s", jsonErr.Error())
	}
	return &session, nil
}
