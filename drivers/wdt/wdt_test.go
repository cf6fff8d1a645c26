package wdt

import (
	"testing"

	"nrfbsp-go/types"
)

func TestTimeoutIsTenKicks(t *testing.T) {
	dog := &NopDog{}
	if _, err := Init(types.WDTConfig{Enabled: true, KickPeriodMs: 100}, dog); err != nil {
		t.Fatal(err)
	}
	if dog.TimeoutMs != 1000 {
		t.Fatalf("timeout=%d", dog.TimeoutMs)
	}
}

func TestHndlKicksOnPeriod(t *testing.T) {
	dog := &NopDog{}
	d, _ := Init(types.WDTConfig{Enabled: true, KickPeriodMs: 100}, dog)
	d.Hndl(50) // not started
	if dog.Fed != 0 {
		t.Fatal("kicked before start")
	}
	_ = d.Start(0)
	for now := uint32(10); now <= 1000; now += 10 {
		d.Hndl(now)
	}
	if dog.Fed != 10 || d.Kicks() != 10 {
		t.Fatalf("fed=%d", dog.Fed)
	}
}

func TestDisabled(t *testing.T) {
	d, err := Init(types.WDTConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.Enabled() {
		t.Fatal("should be disabled")
	}
	if err := d.Start(0); err != nil {
		t.Fatal(err)
	}
	d.Hndl(1000)
	if d.Kicks() != 0 {
		t.Fatal("disabled driver kicked")
	}
	if _, err := Init(types.WDTConfig{Enabled: true}, &NopDog{}); err == nil {
		t.Fatal("zero period accepted")
	}
}
