package domain

type CoverType string

const (
	CoverHard CoverType = "HARD"
	CoverSoft CoverType = "SOFT"
)

func (c CoverType) Valid() bool {
	return c == CoverHard || c == CoverSoft
}

type PaymentStatusType string

const (
	PaymentStatusPending PaymentStatusType = "PENDING"
	PaymentStatusPaid    PaymentStatusType = "PAID"
)

type PaymentKindType string

const (
	PaymentKindPayment PaymentKindType = "PAYMENT"
	PaymentKindFine    PaymentKindType = "FINE"
)
