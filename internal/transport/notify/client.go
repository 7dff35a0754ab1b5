// Package notify отправляет уведомления во внешний мессенджер-эндпоинт
// (telegram-совместимый sendMessage API). Отправка fire-and-forget: сбои логируются
// и никогда не валят вызвавшую операцию.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const RouteSendMessage = "/bot%s/sendMessage"

const defaultHTTPTimeout = 10 * time.Second

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type StatusCodeError struct {
	Code int
}

func NewStatusCodeError(code int) *StatusCodeError {
	return &StatusCodeError{Code: code}
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("Unexpected status code %d", e.Code)
}

// HTTPClient является реализацией интерфейса Sender для HTTP запросов к мессенджеру.
type HTTPClient struct {
	baseURL    string
	botToken   string
	chatID     string
	httpClient *http.Client
}

func New(baseURL, botToken, chatID string) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		botToken: botToken,
		chatID:   chatID,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// SendMessage отправляет текстовое сообщение в настроенный чат. При ответе сервера
// со статусом отличным от http.StatusOK возвращает ошибку *StatusCodeError.
//
//nolint:nonamedreturns
func (c *HTTPClient) SendMessage(ctx context.Context, text string) (err error) {
	payload := sendMessageRequest{
		ChatID: c.chatID,
		Text:   text,
	}

	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return fmt.Errorf("marshal request: %s", marshalErr.Error())
	}

	url := c.baseURL + fmt.Sprintf(RouteSendMessage, c.botToken)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return NewStatusCodeError(resp.StatusCode)
	}
	return nil
}
