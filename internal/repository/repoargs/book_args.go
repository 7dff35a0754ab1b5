package repoargs

import (
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-lend/internal/domain"
)

type CreateBook struct {
	Title     string
	Author    string
	Cover     domain.CoverType
	Inventory int32
	DailyFee  decimal.Decimal
}

type UpdateBook struct {
	ID        int64
	Title     string
	Author    string
	Cover     domain.CoverType
	Inventory int32
	DailyFee  decimal.Decimal
}
