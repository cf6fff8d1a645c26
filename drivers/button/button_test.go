package button

import (
	"testing"

	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
)

func cfg(lpf bool) types.ButtonsConfig {
	return types.ButtonsConfig{
		PeriodMs: 10,
		ThLow:    0.05,
		ThHigh:   0.95,
		Buttons: []types.ButtonConfig{
			{Name: "BTN1", Pin: gpio.BTN1, Polarity: types.ActiveLow, Pull: types.PullUp, LPF: lpf, LPFFcHz: 10},
			{Name: "BTN2", Pin: gpio.BTN2, Polarity: types.ActiveLow, Pull: types.PullUp, LPF: lpf, LPFFcHz: 10},
		},
	}
}

func TestFilteredPressAndRelease(t *testing.T) {
	pins := gpio.NewFakeFactory()
	d, err := Init(cfg(true), pins)
	if err != nil {
		t.Fatal(err)
	}
	var pressed, released []int
	d.OnPressed(func(id int) { pressed = append(pressed, id) })
	d.OnReleased(func(id int) { released = append(released, id) })

	pins.Pin(gpio.BTN2).Set(false) // press (active low)
	n := 0
	for len(pressed) == 0 && n < 50 {
		d.Hndl()
		n++
	}
	if len(pressed) != 1 || pressed[0] != 1 {
		t.Fatalf("pressed=%v", pressed)
	}
	// fc=10 Hz at 100 Hz needs several samples to cross 95%.
	if n < 5 {
		t.Fatalf("pressed after %d samples, filter too fast", n)
	}
	if s, _ := d.State(1); !s {
		t.Fatal("state should be pressed")
	}

	pins.Pin(gpio.BTN2).Set(true)
	for i := 0; i < 50; i++ {
		d.Hndl()
	}
	if len(released) != 1 || released[0] != 1 {
		t.Fatalf("released=%v", released)
	}
}

func TestGlitchIsFiltered(t *testing.T) {
	pins := gpio.NewFakeFactory()
	d, _ := Init(cfg(true), pins)
	fired := 0
	d.OnPressed(func(int) { fired++ })

	p := pins.Pin(gpio.BTN1)
	for i := 0; i < 20; i++ {
		p.Set(i%3 != 0) // short low spikes
		d.Hndl()
	}
	if fired != 0 {
		t.Fatalf("glitches produced %d presses", fired)
	}
}

func TestUnfilteredFollowsRaw(t *testing.T) {
	pins := gpio.NewFakeFactory()
	d, _ := Init(cfg(false), pins)
	fired := 0
	d.OnPressed(func(int) { fired++ })
	pins.Pin(gpio.BTN1).Set(false)
	d.Hndl()
	if fired != 1 {
		t.Fatalf("fired=%d", fired)
	}
}

func TestBoundsAndNilCallbacks(t *testing.T) {
	d, _ := Init(cfg(true), gpio.NewFakeFactory())
	d.OnPressed(nil)
	if _, err := d.State(4); err != errcode.InvalidParams {
		t.Fatalf("got %v", err)
	}
	if err := d.SetLPFFc(0, 0); err != errcode.InvalidParams {
		t.Fatalf("got %v", err)
	}
	if err := d.SetLPFFc(0, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(types.ButtonsConfig{}, gpio.NewFakeFactory()); err == nil {
		t.Fatal("zero period accepted")
	}
}
