package main

import (
	"github.com/fitduel-vn/fitduel/internal/app/server"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	logging.Fatal("Duel server exited: ", zap.Error(
		server.NewServer().Start(),
	))
}
