//go:build (linux && !baremetal) || darwin

// Command blecon is a BLE central console for the board's serial service:
// keystrokes go to the RX characteristic, TX notifications go to the
// terminal.
package main

import (
	"time"

	"tinygo.org/x/bluetooth"
	"tinygo.org/x/bluetooth/rawterm"
	"v.io/x/lib/cmdline"
	"v.io/x/lib/vlog"

	"nrfbsp-go/drivers/blep"
	"nrfbsp-go/errcode"
)

func main() {
	cmdline.Main(cmdCon)
}

var cmdCon = &cmdline.Command{
	Runner: cmdline.RunnerFunc(runCon),
	Name:   "blecon",
	Short:  "opens a terminal on the board's BLE serial service",
	Long: `
Command blecon scans for a board advertising the serial service, connects and
bridges the terminal to it. Lines typed are written to the RX characteristic in
chunks of at most --mtu bytes; TX notifications are printed as they arrive.
Exit with Ctrl-X.
`,
}

var (
	flagName string
	flagScan time.Duration
	flagMTU  int
)

func init() {
	cmdCon.Flags.StringVar(&flagName, "name", "", "connect only to a peripheral advertising this local name")
	cmdCon.Flags.DurationVar(&flagScan, "scan", 30*time.Second, "give up scanning after this long")
	cmdCon.Flags.IntVar(&flagMTU, "mtu", blep.DefaultMaxPayload, "largest write in bytes")
}

func uuid(id uint16) (bluetooth.UUID, error) {
	return bluetooth.ParseUUID(blep.SerialUUID(id))
}

func runCon(env *cmdline.Env, args []string) error {
	if len(args) != 0 {
		return env.UsageErrorf("blecon: unexpected arguments %v", args)
	}
	if flagMTU <= 0 {
		return env.UsageErrorf("blecon: --mtu must be positive")
	}
	if err := vlog.ConfigureLibraryLoggerFromFlags(); err != nil {
		return err
	}
	svcUUID, err := uuid(blep.SerialServiceID)
	if err != nil {
		return err
	}
	txUUID, _ := uuid(blep.SerialTXID)
	rxUUID, _ := uuid(blep.SerialRXID)

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return errcode.Wrap(errcode.NotInitialized, "blecon.enable", err)
	}

	found, err := scan(adapter, svcUUID)
	if err != nil {
		return err
	}
	vlog.Infof("connecting to %q (%s)", found.LocalName(), found.Address.String())

	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return errcode.Wrap(errcode.NotConnected, "blecon.connect", err)
	}
	defer device.Disconnect()

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		return errcode.Wrap(errcode.Unsupported, "blecon.discover", err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{rxUUID, txUUID})
	if err != nil || len(chars) < 2 {
		return errcode.Wrap(errcode.Unsupported, "blecon.discover", err)
	}
	rx, tx := chars[0], chars[1]

	err = tx.EnableNotifications(func(value []byte) {
		for _, c := range value {
			rawterm.Putchar(c)
		}
	})
	if err != nil {
		return errcode.Wrap(errcode.Unsupported, "blecon.notify", err)
	}

	vlog.Info("connected, exit with Ctrl-X")
	rawterm.Configure()
	defer rawterm.Restore()
	return console(rx)
}

// scan blocks until a peripheral offering svc (and matching --name, if set)
// is seen or the scan window ends.
func scan(adapter *bluetooth.Adapter, svc bluetooth.UUID) (bluetooth.ScanResult, error) {
	var found bluetooth.ScanResult
	var ok bool
	timer := time.AfterFunc(flagScan, func() { _ = adapter.StopScan() })
	defer timer.Stop()

	vlog.Infof("scanning for %s", svc.String())
	err := adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if !r.AdvertisementPayload.HasServiceUUID(svc) {
			return
		}
		if flagName != "" && r.LocalName() != flagName {
			return
		}
		found, ok = r, true
		if err := a.StopScan(); err != nil {
			vlog.Errorf("stop scan: %v", err)
		}
	})
	if err != nil {
		return found, errcode.Wrap(errcode.Error, "blecon.scan", err)
	}
	if !ok {
		return found, &errcode.E{C: errcode.Timeout, Op: "blecon.scan", Msg: "no board found"}
	}
	return found, nil
}

// console sends each typed line, CR-terminated, in MTU-sized writes.
func console(rx bluetooth.DeviceCharacteristic) error {
	var line []byte
	for {
		ch := rawterm.Getchar()
		switch ch {
		case '\x18':
			return nil
		case '\n':
			line = append(line, '\r')
			for p := line; len(p) > 0; {
				n := min(len(p), flagMTU)
				if _, err := rx.WriteWithoutResponse(p[:n]); err != nil {
					vlog.Errorf("send: %v", err)
					break
				}
				p = p[n:]
			}
			line = line[:0]
		default:
			line = append(line, ch)
			rawterm.Putchar(ch)
		}
	}
}
