package main

import (
	"context"
	"time"

	"nrfbsp-go/bus"
	"nrfbsp-go/platform"
	"nrfbsp-go/services/app"
	"nrfbsp-go/services/config"
)

func main() {
	// Built with -serial=usb, println shares the CDC port with the CLI;
	// give the host time to enumerate it.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, config.BoardDK)

	b := bus.NewBus(8)
	cs := config.NewConfigService()
	if err := cs.Start(ctx, b.NewConnection("config")); err != nil {
		println("[main] config:", err.Error())
		return
	}

	a := app.New(cs.Config(), platform.Board(), b)
	if err := a.Init(); err != nil {
		// Keep running: the shell is still useful with a peripheral down.
		println("[main] init:", err.Error())
	}
	println("[main] running")
	_ = a.Run(ctx)
}
