package pgrepo

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type BorrowingRepository struct {
	db uow.DBTX
}

func NewBorrowingRepository(db uow.DBTX) *BorrowingRepository {
	return &BorrowingRepository{db: db}
}

const borrowingColumns = `id, created_at, updated_at, user_id, book_id,
	borrow_date, expected_return_date, actual_return_date`

// Create вставляет новый заем. Уникальный частичный индекс по user_id (только для
// незакрытых заемов) превращает попытку второго активного займа в ErrDuplicateKey.
func (r *BorrowingRepository) Create(
	ctx context.Context,
	args repoargs.CreateBorrowing,
) (*domain.Borrowing, error) {
	q := `INSERT INTO borrowings (user_id, book_id, borrow_date, expected_return_date)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + borrowingColumns

	borrowing, err := scanBorrowing(r.db.QueryRow(
		ctx, q, args.UserID, args.BookID, args.BorrowDate, args.ExpectedReturnDate,
	))
	if err != nil {
		return nil, convertErr(err, "creating borrowing for user `%d`", args.UserID)
	}
	return borrowing, nil
}

func (r *BorrowingRepository) FindByID(ctx context.Context, id int64) (*domain.Borrowing, error) {
	q := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE id = $1`

	borrowing, err := scanBorrowing(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, convertErr(err, "finding borrowing by id `%d`", id)
	}
	return borrowing, nil
}

// FindByIDForUpdate блокирует строку займа до конца транзакции. Вызывать только
// внутри uow.Do, иначе блокировка не имеет смысла.
func (r *BorrowingRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Borrowing, error) {
	q := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE id = $1 FOR UPDATE`

	borrowing, err := scanBorrowing(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, convertErr(err, "locking borrowing by id `%d`", id)
	}
	return borrowing, nil
}

func (r *BorrowingRepository) FindActiveByUserID(ctx context.Context, userID int64) (*domain.Borrowing, error) {
	q := `SELECT ` + borrowingColumns + ` FROM borrowings
		WHERE user_id = $1 AND actual_return_date IS NULL`

	borrowing, err := scanBorrowing(r.db.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, convertErr(err, "finding active borrowing of user `%d`", userID)
	}
	return borrowing, nil
}

// GetByFilter возвращает займы по опциональным условиям, отсортированные по дате
// создания по убыванию.
func (r *BorrowingRepository) GetByFilter(
	ctx context.Context,
	filter repoargs.BorrowingFilter,
) ([]domain.Borrowing, error) {
	q := `SELECT ` + borrowingColumns + ` FROM borrowings
		WHERE ($1::bigint IS NULL OR user_id = $1)
		AND ($2::boolean IS NULL OR (actual_return_date IS NULL) = $2)
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q, filter.UserID, filter.IsActive)
	if err != nil {
		return nil, convertErr(err, "getting borrowings by filter")
	}
	defer rows.Close()

	var borrowings []domain.Borrowing
	for rows.Next() {
		borrowing, scanErr := scanBorrowing(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning borrowing row")
		}
		borrowings = append(borrowings, *borrowing)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating borrowing rows")
	}
	return borrowings, nil
}

// MarkReturned закрывает заем. Условие actual_return_date IS NULL защищает от
// двойного возврата даже без предварительной блокировки строки.
func (r *BorrowingRepository) MarkReturned(
	ctx context.Context,
	id int64,
	returnedAt time.Time,
) (*domain.Borrowing, error) {
	q := `UPDATE borrowings
		SET actual_return_date = $2, updated_at = now()
		WHERE id = $1 AND actual_return_date IS NULL
		RETURNING ` + borrowingColumns

	borrowing, err := scanBorrowing(r.db.QueryRow(ctx, q, id, returnedAt))
	if err != nil {
		return nil, convertErr(err, "marking borrowing `%d` as returned", id)
	}
	return borrowing, nil
}

// GetOverdue возвращает незакрытые займы, срок которых истекает не позже deadline,
// вместе с email юзера и названием книги для текста уведомления.
func (r *BorrowingRepository) GetOverdue(
	ctx context.Context,
	deadline time.Time,
	limit uint,
) ([]repoargs.OverdueBorrowing, error) {
	safeLimit, limitErr := safeConvertUintToInt32(limit)
	if limitErr != nil {
		return nil, convertErr(limitErr, "converting limit to int32")
	}

	q := `SELECT br.id, u.email, bk.title, br.borrow_date, br.expected_return_date
		FROM borrowings br
		JOIN users u ON u.id = br.user_id
		JOIN books bk ON bk.id = br.book_id
		WHERE br.actual_return_date IS NULL AND br.expected_return_date <= $1
		ORDER BY br.expected_return_date
		LIMIT $2`

	rows, err := r.db.Query(ctx, q, deadline, safeLimit)
	if err != nil {
		return nil, convertErr(err, "getting overdue borrowings")
	}
	defer rows.Close()

	var overdue []repoargs.OverdueBorrowing
	for rows.Next() {
		var o repoargs.OverdueBorrowing
		if scanErr := rows.Scan(
			&o.BorrowingID, &o.UserEmail, &o.BookTitle, &o.BorrowDate, &o.ExpectedReturnDate,
		); scanErr != nil {
			return nil, convertErr(scanErr, "scanning overdue borrowing row")
		}
		overdue = append(overdue, o)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating overdue borrowing rows")
	}
	return overdue, nil
}

func scanBorrowing(row rowScanner) (*domain.Borrowing, error) {
	var b domain.Borrowing
	if err := row.Scan(
		&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.UserID, &b.BookID,
		&b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &b, nil
}
