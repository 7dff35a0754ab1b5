package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-lend/internal/domain"
	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
)

const dispatchTimeout = 10 * time.Second

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks

// Sender интерфейс отправки сообщения. Реализуется HTTPClient, в тестах мокается.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Dispatcher собирает тексты уведомлений и отправляет их через Sender.
// Ошибки отправки логируются и проглатываются: уведомление не является частью
// бизнес-операции и не должно ее откатывать.
type Dispatcher struct {
	sender Sender
	l      *logrus.Entry
}

func NewDispatcher(sender Sender, l *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		l: l.WithFields(logrus.Fields{
			"component": "notify",
			"module":    "dispatcher",
		}),
	}
}

// BorrowingCreated уведомляет о новом займе.
func (d *Dispatcher) BorrowingCreated(user *domain.User, book *domain.Book, borrowing *domain.Borrowing) {
	message := fmt.Sprintf(
		"New borrowing created:\nUser: %s\nBook: %s\nBorrowing date: %s\nExpected return date: %s",
		user.Email,
		book.Title,
		borrowing.BorrowDate.Format(time.DateOnly),
		borrowing.ExpectedReturnDate.Format(time.DateOnly),
	)
	d.send(message)
}

// OverdueBorrowing уведомляет о просроченном (или истекающем в ближайшие сутки) займе.
func (d *Dispatcher) OverdueBorrowing(overdue repoargs.OverdueBorrowing) {
	message := fmt.Sprintf(
		"Overdue borrowing alert:\nUser: %s\nBook: %s\nExpected return date: %s\nBorrow date: %s",
		overdue.UserEmail,
		overdue.BookTitle,
		overdue.ExpectedReturnDate.Format(time.DateOnly),
		overdue.BorrowDate.Format(time.DateOnly),
	)
	d.send(message)
}

func (d *Dispatcher) send(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if err := d.sender.SendMessage(ctx, message); err != nil {
		d.l.WithError(err).Error("failed to send notification")
	}
}
