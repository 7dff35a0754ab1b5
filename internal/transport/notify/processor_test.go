package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-lend/internal/repository/repoargs"
	"github.com/fsdevblog/groph-lend/internal/transport/notify/mocks"
)

type ProcessorTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockSender  *mocks.MockSender
	mockService *mocks.MockServicer
	processor   *Processor
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockSender = mocks.NewMockSender(s.ctrl)
	s.mockService = mocks.NewMockServicer(s.ctrl)

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	s.processor = NewProcessor(s.mockService, NewDispatcher(s.mockSender, logger), logger)
}

func (s *ProcessorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ProcessorTestSuite) TestProcessDispatchesAlerts() {
	overdue := []repoargs.OverdueBorrowing{
		{BorrowingID: 1, UserEmail: "a@example.com", BookTitle: "Book A"},
		{BorrowingID: 2, UserEmail: "b@example.com", BookTitle: "Book B"},
	}

	s.mockService.EXPECT().
		OverdueForAlert(gomock.Any(), gomock.Any(), s.processor.limitPerIteration).
		DoAndReturn(func(_ context.Context, deadline time.Time, _ uint) ([]repoargs.OverdueBorrowing, error) {
			// Дедлайн выборки лежит в пределах окна алертов от текущего момента.
			s.WithinDuration(time.Now().Add(s.processor.alertWindow), deadline, time.Minute)
			return overdue, nil
		})

	s.mockSender.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	s.processor.process(context.Background())
}

// Ошибка выборки не валит итерацию и не доходит до отправки.
func (s *ProcessorTestSuite) TestProcessFetchError() {
	s.mockService.EXPECT().
		OverdueForAlert(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down"))

	s.mockSender.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Times(0)

	s.processor.process(context.Background())
}

func (s *ProcessorTestSuite) TestRunStopsOnContextCancel() {
	s.mockService.EXPECT().
		OverdueForAlert(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]repoargs.OverdueBorrowing{}, nil).
		AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.processor.SetCheckInterval(10 * time.Millisecond).Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("processor did not stop after context cancellation")
	}
}

func (s *ProcessorTestSuite) TestSetters() {
	p := s.processor.
		SetCheckInterval(5 * time.Minute).
		SetLimitPerIteration(10)

	s.Equal(5*time.Minute, p.checkInterval)
	s.Equal(uint(10), p.limitPerIteration)
}
