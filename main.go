package main

import (
	"context"
	"os"
	"time"

	"satpoint-go/platform"
	"satpoint-go/services/boot"
	"satpoint-go/services/config"
	"satpoint-go/services/pointing"
	"satpoint-go/x/logx"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	logger, sink := logx.New(os.Stdout, logx.Options{NoColor: true})
	defer sink.Close()
	log := logx.Tag(logger, logx.TagMain)
	log.Info("boot")

	cfg, err := config.Load(config.DefaultDevice)
	if err != nil {
		log.Error("config", "err", err)
		halt()
	}

	board, err := platform.Open(cfg, platform.HostOptions{})
	if err != nil {
		log.Error("board", "err", err)
		halt()
	}

	deps := boot.Deps{
		Config:  cfg,
		Station: board.Station,
		Store:   board.Store,
		Logger:  logger,
	}
	if board.I2C != nil {
		deps.Sensors = pointing.NewBoard(board.I2C, logger)
	}
	if board.GPS != nil {
		deps.GPS = board.GPS
	}

	sys, err := boot.Start(context.Background(), deps)
	if err != nil {
		halt()
	}
	if err := sys.Wait(); err != nil {
		log.Error("tasks ended", "err", err)
	}
	halt()
}

// halt parks the main goroutine; firmware never returns from main.
func halt() { select {} }
