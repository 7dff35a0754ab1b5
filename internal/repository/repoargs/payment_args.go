package repoargs

import (
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-lend/internal/domain"
)

type CreatePayment struct {
	BorrowingID int64
	Status      domain.PaymentStatusType
	Kind        domain.PaymentKindType
	SessionID   string
	SessionURL  string
	Amount      decimal.Decimal
}
