package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader заголовок с подписью тела вебхука.
const SignatureHeader = "Checkout-Signature"

// EventCheckoutSessionCompleted единственный тип события, который система обрабатывает.
// Остальные события подтверждаются и пропускаются.
const EventCheckoutSessionCompleted = "checkout.session.completed"

type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object EventObject `json:"object"`
}

type EventObject struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
}

// ConstructEvent верифицирует подпись вебхука и разбирает его тело. Подпись
// считается как hex(HMAC-SHA256(payload, secret)), сравнение константное по времени.
// Возвращает ошибки ErrInvalidSignature и ErrInvalidPayload.
func ConstructEvent(payload []byte, signature string, secret []byte) (*Event, error) {
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	expected, decodeErr := hex.DecodeString(signature)
	if decodeErr != nil {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return nil, ErrInvalidSignature
	}

	var event Event
	if jsonErr := json.Unmarshal(payload, &event); jsonErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, jsonErr.Error())
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}
	return &event, nil
}

// SignPayload считает подпись тела так же, как ее считает шлюз. Используется в тестах
// и утилитах для эмуляции вебхуков.
func SignPayload(payload []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
