package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bindiff/cmd"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	err := cmd.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.WithError(err).Error("bindiff failed")
		os.Exit(1)
	}
}
