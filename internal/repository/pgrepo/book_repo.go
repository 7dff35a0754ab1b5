package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/pkg/uow"
)

type BookRepository struct {
	db uow.DBTX
}

func NewBookRepository(db uow.DBTX) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, created_at, updated_at, title, author, cover, inventory, daily_fee`

func (r *BookRepository) Create(ctx context.Context, args repoargs.CreateBook) (*domain.Book, error) {
	q := `INSERT INTO books (title, author, cover, inventory, daily_fee)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + bookColumns

	book, err := scanBook(r.db.QueryRow(ctx, q, args.Title, args.Author, args.Cover, args.Inventory, args.DailyFee))
	if err != nil {
		return nil, convertErr(err, "creating book `%s`", args.Title)
	}
	return book, nil
}

func (r *BookRepository) Update(ctx context.Context, args repoargs.UpdateBook) (*domain.Book, error) {
	q := `UPDATE books
		SET title = $2, author = $3, cover = $4, inventory = $5, daily_fee = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + bookColumns

	book, err := scanBook(r.db.QueryRow(
		ctx, q, args.ID, args.Title, args.Author, args.Cover, args.Inventory, args.DailyFee,
	))
	if err != nil {
		return nil, convertErr(err, "updating book with id `%d`", args.ID)
	}
	return book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return convertErr(err, "deleting book with id `%d`", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "deleting book with id `%d`", id)
	}
	return nil
}

func (r *BookRepository) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, convertErr(err, "finding book by id `%d`", id)
	}
	return book, nil
}

// GetAll возвращает каталог, отсортированный по названию.
func (r *BookRepository) GetAll(ctx context.Context) ([]domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books ORDER BY title, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, convertErr(err, "getting books")
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning book row")
		}
		books = append(books, *book)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating book rows")
	}
	return books, nil
}

// DecrementInventory атомарно списывает один экземпляр. Guarded update не дает
// инвентарю уйти в минус: при нулевом остатке строка не затрагивается и вернется
// domain.ErrRecordNotFound. Вызывающая сторона различает "нет книги" и "нет экземпляров".
func (r *BookRepository) DecrementInventory(ctx context.Context, id int64) (*domain.Book, error) {
	q := `UPDATE books
		SET inventory = inventory - 1, updated_at = now()
		WHERE id = $1 AND inventory > 0
		RETURNING ` + bookColumns

	book, err := scanBook(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, convertErr(err, "decrementing inventory of book with id `%d`", id)
	}
	return book, nil
}

// IncrementInventory возвращает один экземпляр на полку. Верхняя граница не контролируется.
func (r *BookRepository) IncrementInventory(ctx context.Context, id int64) (*domain.Book, error) {
	q := `UPDATE books
		SET inventory = inventory + 1, updated_at = now()
		WHERE id = $1
		RETURNING ` + bookColumns

	book, err := scanBook(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, convertErr(err, "incrementing inventory of book with id `%d`", id)
	}
	return book, nil
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var b domain.Book
	if err := row.Scan(
		&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &b, nil
}
