//go:build !nrf52840

// Command bspsim runs the board application on the host with the CLI on
// the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"v.io/x/lib/cmdline"
	"v.io/x/lib/vlog"

	"nrfbsp-go/bus"
	"nrfbsp-go/platform"
	"nrfbsp-go/services/app"
	"nrfbsp-go/services/config"
)

func main() {
	cmdline.Main(cmdSim)
}

var cmdSim = &cmdline.Command{
	Runner: cmdline.RunnerFunc(runSim),
	Name:   "bspsim",
	Short:  "runs the board application against simulated peripherals",
	Long: `
Command bspsim runs the board application on the host. LEDs, buttons, the ADC,
UART and BLE are in-memory stand-ins; the USB CDC port is stdin/stdout, so the
CLI can be driven from a terminal or a pipe.

Example:
  $ printf 'help\rled 2 on\r' | bspsim --for=1s
`,
}

var (
	flagBoard   string
	flagFor     time.Duration
	flagMonitor bool
)

func init() {
	cmdSim.Flags.StringVar(&flagBoard, "board", config.BoardDK, "board profile to load")
	cmdSim.Flags.DurationVar(&flagFor, "for", 0, "stop after this long; 0 runs until interrupted")
	cmdSim.Flags.BoolVar(&flagMonitor, "monitor", false, "log every bus message")
}

func runSim(env *cmdline.Env, args []string) error {
	if len(args) != 0 {
		return env.UsageErrorf("bspsim: unexpected arguments %v", args)
	}
	if err := vlog.ConfigureLibraryLoggerFromFlags(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if flagFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagFor)
		defer cancel()
	}
	ctx, reset := context.WithCancel(context.WithValue(ctx, config.CtxDeviceKey, flagBoard))
	defer reset()

	b := bus.NewBus(16)
	cs := config.NewConfigService()
	if err := cs.Start(ctx, b.NewConnection("config")); err != nil {
		return err
	}
	if flagMonitor {
		go monitor(ctx, b.NewConnection("monitor"))
	}

	res := platform.Board()
	res.USB = platform.NewStdioPort(env.Stdin, env.Stdout)
	res.Reset = func() {
		vlog.Info("reset requested")
		reset()
	}
	res.Sleep = func(uint32) { <-ctx.Done() }

	a := app.New(cs.Config(), res, b)
	if err := a.Init(); err != nil {
		vlog.Errorf("init: %v (%d failures)", err, a.Failures())
	}
	vlog.Infof("board %s running", flagBoard)
	err := a.Run(ctx)
	vlog.Infof("stopped: %v, bus dropped %d", err, b.Dropped())
	if err == context.DeadlineExceeded || err == context.Canceled {
		return nil
	}
	return err
}

func monitor(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(bus.T("#"))
	defer conn.Disconnect()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			vlog.Infof("bus %s retained=%t %+v", m.Topic, m.Retained, m.Payload)
		}
	}
}
