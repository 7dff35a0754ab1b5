package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
)

const (
	defaultServiceTimeout          = 3 * time.Second
	defaultCheckInterval           = time.Hour
	defaultAlertWindow             = 24 * time.Hour
	defaultLimitPerIteration  uint = 100
)

// Servicer часть сервисного слоя, нужная процессору. Интерфейс исключительно для моков.
type Servicer interface {
	OverdueForAlert(ctx context.Context, deadline time.Time, limit uint) ([]repoargs.OverdueBorrowing, error)
}

// Processor фоновый обработчик просрочек: периодически выбирает незакрытые займы,
// срок которых истекает в пределах окна, и рассылает по ним уведомления.
type Processor struct {
	svs               Servicer
	dispatcher        *Dispatcher
	l                 *logrus.Entry
	checkInterval     time.Duration
	alertWindow       time.Duration
	limitPerIteration uint
}

// NewProcessor создает новый экземпляр процессора уведомлений о просрочках.
func NewProcessor(svs Servicer, dispatcher *Dispatcher, l *logrus.Logger) *Processor {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "notify",
		"module":    "processor",
	})

	return &Processor{
		svs:               svs,
		dispatcher:        dispatcher,
		l:                 loggerEntry,
		checkInterval:     defaultCheckInterval,
		alertWindow:       defaultAlertWindow,
		limitPerIteration: defaultLimitPerIteration,
	}
}

// SetCheckInterval устанавливает период между итерациями обработчика.
func (p *Processor) SetCheckInterval(interval time.Duration) *Processor {
	p.checkInterval = interval
	return p
}

// SetLimitPerIteration устанавливает кол-во займов, обрабатываемых в одной итерации.
func (p *Processor) SetLimitPerIteration(limit uint) *Processor {
	p.limitPerIteration = limit
	return p
}

// Run запускает обработку в бесконечном цикле до отмены контекста. Первая итерация
// выполняется сразу, не дожидаясь тикера.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"checkInterval":     p.checkInterval.String(),
		"limitPerIteration": p.limitPerIteration,
	}).Info("Starting")

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	p.process(ctx)

	for {
		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
			p.process(ctx)
		}
	}
}

// process выполняет одну итерацию: выборка просрочек через сервисный слой и рассылка
// уведомлений. Ошибки логируются, итерация никогда не останавливает цикл.
func (p *Processor) process(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	deadline := time.Now().Add(p.alertWindow)

	overdue, err := p.svs.OverdueForAlert(reqCtx, deadline, p.limitPerIteration)
	if err != nil {
		p.l.WithError(err).Error("fetching overdue borrowings")
		return
	}

	for _, item := range overdue {
		p.dispatcher.OverdueBorrowing(item)
	}

	if len(overdue) > 0 {
		p.l.WithField("count", len(overdue)).Info("overdue alerts dispatched")
	}
}
