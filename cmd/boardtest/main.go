// cmd/boardtest/main.go
//
// Board bring-up check: claims the sensor bus, runs the pointing pipeline
// at a fast cadence and prints every reading taken off the bus. No network.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"satpoint-go/bus"
	"satpoint-go/platform"
	"satpoint-go/services/config"
	"satpoint-go/services/pointing"
	"satpoint-go/types"
	"satpoint-go/x/logx"
)

const (
	period      = 250 * time.Millisecond
	cyclesToRun = 0 // 0 = loop forever
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	logger, sink := logx.New(os.Stdout, logx.Options{NoColor: true})
	defer sink.Close()

	cfg := config.Defaults()
	board, err := platform.Open(cfg, platform.HostOptions{})
	if err != nil {
		println("[boardtest] open board:", err.Error())
		return
	}
	defer board.Close()
	if board.I2C == nil {
		println("[boardtest] board has no sensor bus")
		return
	}

	b := bus.NewBus(8)
	mon := b.NewConnection("monitor").Subscribe(bus.T("pointing", "reading"))

	p := pointing.New(pointing.NewBoard(board.I2C, logger), pointing.Options{
		Period:     period,
		ReadPolicy: types.ReadPolicySkip,
		Output:     pointing.BusOutput{Conn: b.NewConnection("pointing")},
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	n := 0
	for {
		select {
		case err := <-done:
			if err != nil {
				println("[boardtest] pipeline:", err.Error())
			}
			return
		case m := <-mon.Channel():
			r, ok := m.Payload.(types.Reading)
			if !ok {
				continue
			}
			n++
			fmt.Printf("[boardtest] #%d acc=%v gyr=%v mag=%v el=%.1f az=%.1f\n",
				n, r.Accel, r.Gyro, r.Mag, r.Pointing.Elevation, r.Pointing.Azimuth)
			if cyclesToRun > 0 && n >= cyclesToRun {
				cancel()
			}
		}
	}
}
