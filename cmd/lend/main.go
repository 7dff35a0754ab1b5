package main

import (
	"context"
	"errors"
	"os"

	"github.com/fsdevblog/groph-lend/internal/app"
	"github.com/fsdevblog/groph-lend/internal/config"
	"github.com/fsdevblog/groph-lend/internal/logger"
)

func main() {
	conf := config.MustLoadConfig()
	l := logger.New(os.Stdout)

	if err := app.New(conf, l).Run(); err != nil {
		// Отмена контекста приходит из signal.NotifyContext, это штатная остановка.
		if errors.Is(err, context.Canceled) {
			l.Info("shutdown complete")
			os.Exit(0)
		}
		l.WithError(err).Fatal("app terminated")
	}
}
