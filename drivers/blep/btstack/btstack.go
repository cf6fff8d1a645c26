// Package btstack runs the BLE peripheral on tinygo.org/x/bluetooth: the
// SoftDevice on nRF52840 builds, BlueZ on a Linux host.
package btstack

import (
	"nrfbsp-go/drivers/blep"
	"nrfbsp-go/errcode"

	"tinygo.org/x/bluetooth"
)

type Stack struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	params  bluetooth.ConnectionParams
	chars   []bluetooth.Characteristic
	notify  *bluetooth.Characteristic
	onConn  func(bool)
}

var _ blep.Stack = (*Stack)(nil)

// New wraps adapter, normally bluetooth.DefaultAdapter.
func New(adapter *bluetooth.Adapter) *Stack {
	return &Stack{adapter: adapter, onConn: func(bool) {}}
}

func (s *Stack) Enable() error {
	if err := s.adapter.Enable(); err != nil {
		return err
	}
	s.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected && s.params.MaxInterval != 0 {
			// Best effort: the central may keep its own parameters.
			_ = device.RequestConnectionParams(s.params)
		}
		s.onConn(connected)
	})
	return nil
}

func (s *Stack) SetConnectHandler(fn func(connected bool)) {
	if fn == nil {
		fn = func(bool) {}
	}
	s.onConn = fn
}

func parseUUID(v string) (bluetooth.UUID, error) {
	u, err := bluetooth.ParseUUID(v)
	if err != nil {
		return bluetooth.UUID{}, errcode.Wrap(errcode.InvalidParams, "btstack.uuid", err)
	}
	return u, nil
}

func permissions(f blep.Flags) bluetooth.CharacteristicPermissions {
	var p bluetooth.CharacteristicPermissions
	if f&blep.FlagRead != 0 {
		p |= bluetooth.CharacteristicReadPermission
	}
	if f&blep.FlagWrite != 0 {
		p |= bluetooth.CharacteristicWritePermission
	}
	if f&blep.FlagWriteNoRsp != 0 {
		p |= bluetooth.CharacteristicWriteWithoutResponsePermission
	}
	if f&blep.FlagNotify != 0 {
		p |= bluetooth.CharacteristicNotifyPermission
	}
	return p
}

func (s *Stack) AddService(svc blep.Service) error {
	uuid, err := parseUUID(svc.UUID)
	if err != nil {
		return err
	}
	// Handles must stay put once the stack holds pointers to them.
	handles := make([]bluetooth.Characteristic, len(svc.Chars))
	cfgs := make([]bluetooth.CharacteristicConfig, len(svc.Chars))
	for i, c := range svc.Chars {
		cu, err := parseUUID(c.UUID)
		if err != nil {
			return err
		}
		cfgs[i] = bluetooth.CharacteristicConfig{
			Handle: &handles[i],
			UUID:   cu,
			Value:  c.Value,
			Flags:  permissions(c.Flags),
		}
		if c.OnWrite != nil {
			onWrite := c.OnWrite
			cfgs[i].WriteEvent = func(_ bluetooth.Connection, _ int, value []byte) {
				onWrite(value)
			}
		}
	}
	if err := s.adapter.AddService(&bluetooth.Service{UUID: uuid, Characteristics: cfgs}); err != nil {
		return err
	}
	for i, c := range svc.Chars {
		if c.Flags&blep.FlagNotify != 0 && s.notify == nil {
			s.notify = &handles[i]
		}
	}
	s.chars = append(s.chars, handles...)
	return nil
}

func (s *Stack) ConfigureAdvertisement(cfg blep.AdvConfig) error {
	uuids := make([]bluetooth.UUID, 0, len(cfg.ServiceUUIDs))
	for _, v := range cfg.ServiceUUIDs {
		u, err := parseUUID(v)
		if err != nil {
			return err
		}
		uuids = append(uuids, u)
	}
	opts := bluetooth.AdvertisementOptions{
		LocalName:    cfg.Name,
		ServiceUUIDs: uuids,
		Interval:     bluetooth.NewDuration(cfg.Interval),
	}
	if cfg.CompanyID != 0 {
		opts.ManufacturerData = []bluetooth.ManufacturerDataElement{
			{CompanyID: cfg.CompanyID, Data: cfg.MfgData},
		}
	}
	s.params = bluetooth.ConnectionParams{
		MinInterval: bluetooth.NewDuration(cfg.MinConnInterval),
		MaxInterval: bluetooth.NewDuration(cfg.MaxConnInterval),
		Timeout:     bluetooth.NewDuration(cfg.SupervisionTimeout),
	}
	s.adv = s.adapter.DefaultAdvertisement()
	return s.adv.Configure(opts)
}

func (s *Stack) StartAdvertisement() error {
	if s.adv == nil {
		return errcode.NotInitialized
	}
	return s.adv.Start()
}

func (s *Stack) StopAdvertisement() error {
	if s.adv == nil {
		return errcode.NotInitialized
	}
	return s.adv.Stop()
}

func (s *Stack) Notify(p []byte) (int, error) {
	if s.notify == nil {
		return 0, errcode.NotInitialized
	}
	return s.notify.Write(p)
}
