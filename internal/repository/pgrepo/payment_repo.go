package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type PaymentRepository struct {
	db uow.DBTX
}

func NewPaymentRepository(db uow.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, created_at, updated_at, borrowing_id, status, type,
	session_id, session_url, amount`

func (r *PaymentRepository) Create(ctx context.Context, args repoargs.CreatePayment) (*domain.Payment, error) {
	q := `INSERT INTO payments (borrowing_id, status, type, session_id, session_url, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + paymentColumns

	payment, err := scanPayment(r.db.QueryRow(
		ctx, q, args.BorrowingID, args.Status, args.Kind, args.SessionID, args.SessionURL, args.Amount,
	))
	if err != nil {
		return nil, convertErr(err, "creating payment for borrowing `%d`", args.BorrowingID)
	}
	return payment, nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, convertErr(err, "finding payment by id `%d`", id)
	}
	return payment, nil
}

func (r *PaymentRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, q, sessionID))
	if err != nil {
		return nil, convertErr(err, "finding payment by session id `%s`", sessionID)
	}
	return payment, nil
}

// MarkPaidBySessionID переводит платеж в статус PAID. Обновление идемпотентно:
// повторный вызов для уже оплаченного платежа просто вернет его текущее состояние.
func (r *PaymentRepository) MarkPaidBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	q := `UPDATE payments
		SET status = $2, updated_at = now()
		WHERE session_id = $1
		RETURNING ` + paymentColumns

	payment, err := scanPayment(r.db.QueryRow(ctx, q, sessionID, domain.PaymentStatusPaid))
	if err != nil {
		return nil, convertErr(err, "marking payment with session id `%s` as paid", sessionID)
	}
	return payment, nil
}

// GetAll возвращает все платежи, отсортированные по дате создания по убыванию.
func (r *PaymentRepository) GetAll(ctx context.Context) ([]domain.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, convertErr(err, "getting payments")
	}
	defer rows.Close()

	return collectPayments(rows)
}

// ExistsForUser сообщает, принадлежит ли платеж займу указанного юзера.
func (r *PaymentRepository) ExistsForUser(ctx context.Context, paymentID, userID int64) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM payments p
		JOIN borrowings b ON b.id = p.borrowing_id
		WHERE p.id = $1 AND b.user_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, q, paymentID, userID).Scan(&exists); err != nil {
		return false, convertErr(err, "checking payment `%d` ownership by user `%d`", paymentID, userID)
	}
	return exists, nil
}

// GetByUserID возвращает платежи по займам конкретного юзера.
func (r *PaymentRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.Payment, error) {
	q := `SELECT p.id, p.created_at, p.updated_at, p.borrowing_id, p.status, p.type,
			p.session_id, p.session_url, p.amount
		FROM payments p
		JOIN borrowings b ON b.id = p.borrowing_id
		WHERE b.user_id = $1
		ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, convertErr(err, "getting payments of user `%d`", userID)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	var payments []domain.Payment
	for rows.Next() {
		payment, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning payment row")
		}
		payments = append(payments, *payment)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating payment rows")
	}
	return payments, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.BorrowingID, &p.Status, &p.Kind,
		&p.SessionID, &p.SessionURL, &p.Amount,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &p, nil
}
