package usbcdc

import (
	"context"
	"errors"
	"testing"
	"time"

	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
)

func setup(t *testing.T) (*Driver, *FakePort, *[]string) {
	t.Helper()
	port := NewFakePort()
	d, err := Init(types.USBConfig{RXSize: 32, TXSize: 8, WriteTimeoutMs: 20}, port)
	if err != nil {
		t.Fatal(err)
	}
	var events []string
	d.SetCallbacks(Callbacks{
		Plugged:   func() { events = append(events, "plugged") },
		Unplugged: func() { events = append(events, "unplugged") },
		PortOpen:  func() { events = append(events, "open") },
		PortClose: func() { events = append(events, "close") },
	})
	return d, port, &events
}

func TestCallbacksFollowPortState(t *testing.T) {
	d, port, events := setup(t)
	d.Hndl()
	port.SetOpen(true)
	d.Hndl()
	d.Hndl()
	port.SetOpen(false)
	d.Hndl()
	port.SetPlugged(false)
	d.Hndl()

	want := []string{"plugged", "open", "close", "unplugged"}
	if len(*events) != len(want) {
		t.Fatalf("events=%v want %v", *events, want)
	}
	for i := range want {
		if (*events)[i] != want[i] {
			t.Fatalf("events=%v want %v", *events, want)
		}
	}
}

func TestWriteClosedPort(t *testing.T) {
	d, _, _ := setup(t)
	d.Hndl()
	if _, err := d.Write(context.Background(), []byte("x")); err != errcode.PortClosed {
		t.Fatalf("got %v", err)
	}
}

func TestWriteLargerThanRing(t *testing.T) {
	d, port, _ := setup(t)
	port.SetOpen(true)
	d.Hndl()
	msg := "nRF52840 Dev Board Base Code\r\n"
	n, err := d.WriteString(context.Background(), msg)
	if err != nil || n != len(msg) {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if got := port.Output(); got != msg {
		t.Fatalf("got %q", got)
	}
}

func TestWriteTimesOutOnStalledHost(t *testing.T) {
	d, port, _ := setup(t)
	port.SetOpen(true)
	d.Hndl()
	port.SetAccept(0)

	start := time.Now()
	n, err := d.Write(context.Background(), []byte("0123456789abcdef"))
	if errcode.Of(err) != errcode.Timeout {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause lost: %v", err)
	}
	// Ring (8) plus the chunk handed to the port.
	if n != 16 {
		t.Fatalf("queued=%d want 16", n)
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("write blocked for %v", el)
	}
}

func TestWriteHonoursCallerContext(t *testing.T) {
	d, port, _ := setup(t)
	port.SetOpen(true)
	d.Hndl()
	port.SetAccept(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Write(ctx, []byte("abc")); errcode.Of(err) != errcode.Timeout {
		t.Fatalf("got %v", err)
	}
}

func TestReceive(t *testing.T) {
	d, port, _ := setup(t)
	port.SetOpen(true)
	port.Type("help\r")
	d.Hndl()
	var got []byte
	for {
		b, err := d.Receive()
		if err != nil {
			break
		}
		got = append(got, b)
	}
	if string(got) != "help\r" {
		t.Fatalf("got %q", got)
	}
}

func TestRingsUseDriverStorage(t *testing.T) {
	if _, err := Init(types.USBConfig{RXSize: MaxBuf + 1, TXSize: 8}, NewFakePort()); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("rx beyond storage: %v", err)
	}
	port := NewFakePort()
	d, err := Init(types.USBConfig{RXSize: MaxBuf, TXSize: MaxBuf}, port)
	if err != nil {
		t.Fatal(err)
	}
	port.Type("hi")
	d.Hndl()
	if string(d.rxMem[:2]) != "hi" {
		t.Fatalf("rx storage % x", d.rxMem[:2])
	}
}
