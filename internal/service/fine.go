package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineMultiplier канонический множитель штрафа за просрочку.
const FineMultiplier = 2

const hoursPerDay = 24

// ComputeFine считает штраф за просрочку: dailyFee × overdueDays × multiplier.
// Чистая функция без побочных эффектов. Ноль или отрицательное кол-во дней дает нулевой штраф.
func ComputeFine(dailyFee decimal.Decimal, overdueDays int64, multiplier int64) decimal.Decimal {
	if overdueDays <= 0 {
		return decimal.Zero
	}
	return dailyFee.
		Mul(decimal.NewFromInt(overdueDays)).
		Mul(decimal.NewFromInt(multiplier))
}

// OverdueDays возвращает целое число дней просрочки между ожидаемой и фактической
// датами возврата (floor). Возврат раньше срока дает отрицательное значение.
func OverdueDays(expectedReturn, actualReturn time.Time) int64 {
	diff := actualReturn.Sub(expectedReturn)
	days := int64(diff.Hours() / hoursPerDay)
	if diff < 0 && diff.Hours()/hoursPerDay != float64(days) {
		days--
	}
	return days
}

// BorrowDays возвращает кол-во оплачиваемых дней займа между датой выдачи и ожидаемой
// датой возврата. Схема БД гарантирует, что срок строго больше нуля.
func BorrowDays(borrowDate, expectedReturn time.Time) int64 {
	return int64(expectedReturn.Sub(borrowDate).Hours() / hoursPerDay)
}

// ComputeAmount считает базовую стоимость займа: dailyFee × кол-во дней.
func ComputeAmount(dailyFee decimal.Decimal, days int64) decimal.Decimal {
	return dailyFee.Mul(decimal.NewFromInt(days))
}
