package app

import (
	"context"
	"strconv"
	"strings"

	"nrfbsp-go/bus"
	"nrfbsp-go/errcode"
	"nrfbsp-go/services/cli"
)

func (a *App) commands() []cli.Cmd {
	return []cli.Cmd{
		{Name: "led", Args: "<n> <on|off|toggle>", Help: "Drive an LED", Run: a.cmdLED},
		{Name: "adc", Help: "Show ADC channels", Run: a.cmdADC},
		{Name: "btn", Help: "Show button states", Run: a.cmdBtn},
		{Name: "ble", Args: "<adv_start|adv_stop|status>", Help: "BLE control", Run: a.cmdBLE},
		{Name: "ble_tx", Args: "<text>", Help: "Notify text over BLE", Run: a.cmdBLETx},
		{Name: "uart_tx", Args: "<text>", Help: "Send text on UART1", Run: a.cmdUARTTx},
		{Name: "stats", Help: "Serial and scheduler counters", Run: a.cmdStats},
	}
}

func (a *App) cmdLED(c *cli.CLI, args []string) error {
	if len(args) != 2 {
		return errcode.InvalidParams
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return errcode.InvalidParams
	}
	id := n - 1
	switch args[1] {
	case "on":
		err = a.LEDs.On(id)
	case "off":
		err = a.LEDs.Off(id)
	case "toggle":
		err = a.LEDs.Toggle(id)
	default:
		return errcode.InvalidParams
	}
	if err != nil {
		return err
	}
	on, _ := a.LEDs.Get(id)
	c.Print("LED%d %s", n, onOff(on))
	return nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (a *App) cmdADC(c *cli.CLI, _ []string) error {
	if a.ADC == nil {
		return errcode.NotInitialized
	}
	for i := 0; i < a.ADC.Count(); i++ {
		c.Print("%-5s raw=%4d  %.3f V", a.ADC.Name(i), a.ADC.Raw(i), a.ADC.Real(i))
	}
	return nil
}

func (a *App) cmdBtn(c *cli.CLI, _ []string) error {
	if a.Buttons == nil {
		return errcode.NotInitialized
	}
	for i := 0; i < a.Buttons.Count(); i++ {
		s, _ := a.Buttons.State(i)
		state := "released"
		if s {
			state = "pressed"
		}
		c.Print("BTN%d %s", i+1, state)
	}
	return nil
}

func (a *App) cmdBLE(c *cli.CLI, args []string) error {
	if len(args) != 1 {
		return errcode.InvalidParams
	}
	switch args[0] {
	case "adv_start":
		return a.BLE.AdvStart()
	case "adv_stop":
		return a.BLE.AdvStop()
	case "status":
		c.Print("init=%t adv=%t connected=%t", a.BLE.IsInit(), a.BLE.IsAdv(), a.BLE.IsConnected())
		return nil
	}
	return errcode.InvalidParams
}

func (a *App) cmdBLETx(_ *cli.CLI, args []string) error {
	if len(args) == 0 {
		return errcode.InvalidParams
	}
	_, err := a.BLE.WriteString(context.Background(), strings.Join(args, " ")+"\r\n")
	return err
}

func (a *App) cmdUARTTx(_ *cli.CLI, args []string) error {
	if len(args) == 0 {
		return errcode.InvalidParams
	}
	_, err := a.UART.WriteString(strings.Join(args, " ") + "\r\n")
	return err
}

// retained returns the retained payload on topic, if any.
func (a *App) retained(topic bus.Topic) (any, bool) {
	sub := a.conn.Subscribe(topic)
	defer sub.Unsubscribe()
	select {
	case m := <-sub.Channel():
		return m.Payload, true
	default:
		return nil, false
	}
}

func (a *App) cmdStats(c *cli.CLI, _ []string) error {
	board, ok := a.retained(bus.T("config", "board"))
	if !ok {
		board = a.cfg.Name + " (unpublished)"
	}
	c.Print("board %v", board)
	u, s := a.UART.Stats(), a.USB.Stats()
	c.Print("uart rx=%d tx=%d rxdrop=%d txdrop=%d", u.RXBytes, u.TXBytes, u.RXDrops, u.TXDrops)
	c.Print("usb  rx=%d tx=%d rxdrop=%d txdrop=%d", s.RXBytes, s.TXBytes, s.RXDrops, s.TXDrops)
	c.Print("bus  dropped=%d", a.bus.Dropped())
	c.Print("sched 10ms=%d 100ms=%d 1000ms=%d", a.sched.Runs("10ms"), a.sched.Runs("100ms"), a.sched.Runs("1000ms"))
	c.Print("wdt kicks=%d cli lines=%d", a.WDT.Kicks(), c.Lines())
	return nil
}
