package blep

import (
	"time"

	"nrfbsp-go/types"
)

// Characteristic permissions.
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagWriteNoRsp
	FlagNotify
)

type Char struct {
	UUID    string
	Flags   Flags
	Value   []byte
	OnWrite func(p []byte)
}

type Service struct {
	UUID  string
	Chars []Char
}

type AdvConfig struct {
	Name         string
	Interval     time.Duration
	ServiceUUIDs []string
	CompanyID    uint16
	MfgData      []byte
	// Requested once a central connects.
	MinConnInterval    time.Duration
	MaxConnInterval    time.Duration
	SupervisionTimeout time.Duration
}

// Stack is the BLE host the driver runs on. Notify sends on the first
// characteristic registered with FlagNotify.
type Stack interface {
	Enable() error
	AddService(svc Service) error
	ConfigureAdvertisement(cfg AdvConfig) error
	StartAdvertisement() error
	StopAdvertisement() error
	Notify(p []byte) (int, error)
	SetConnectHandler(fn func(connected bool))
}

// Serial service UUIDs share a vendor base 5ec0xxxx-beef-4feb-842c-e90e79703da7.
const serialSuffix = "-beef-4feb-842c-e90e79703da7"

const (
	SerialServiceID uint16 = 0x0100
	SerialTXID      uint16 = 0x0101
	SerialRXID      uint16 = 0x0102

	DeviceInfoID uint16 = 0x180A
	CharDevName  uint16 = 0x2A00
	CharFWRev    uint16 = 0x2A26
	CharHWRev    uint16 = 0x2A27
	CharSerial   uint16 = 0x2A25
	CharMfgName  uint16 = 0x2A29
)

const hexdigits = "0123456789abcdef"

func hex4(v uint16) string {
	return string([]byte{
		hexdigits[v>>12&0xF], hexdigits[v>>8&0xF],
		hexdigits[v>>4&0xF], hexdigits[v&0xF],
	})
}

// SerialUUID expands a short id on the serial vendor base.
func SerialUUID(id uint16) string {
	return "5ec0" + hex4(id) + serialSuffix
}

// StdUUID expands a 16-bit SIG id on the Bluetooth base.
func StdUUID(id uint16) string {
	return "0000" + hex4(id) + "-0000-1000-8000-00805f9b34fb"
}

func SerialService(onWrite func([]byte)) Service {
	return Service{
		UUID: SerialUUID(SerialServiceID),
		Chars: []Char{
			{UUID: SerialUUID(SerialTXID), Flags: FlagNotify | FlagRead},
			{UUID: SerialUUID(SerialRXID), Flags: FlagWrite | FlagWriteNoRsp, OnWrite: onWrite},
		},
	}
}

func DeviceInfoService(cfg types.BLEConfig) Service {
	ro := func(id uint16, v string) Char {
		return Char{UUID: StdUUID(id), Flags: FlagRead, Value: []byte(v)}
	}
	return Service{
		UUID: StdUUID(DeviceInfoID),
		Chars: []Char{
			ro(CharDevName, cfg.Name),
			ro(CharFWRev, cfg.Info.FWVersion),
			ro(CharHWRev, cfg.Info.HWVersion),
			ro(CharSerial, cfg.Info.Serial),
			ro(CharMfgName, cfg.Info.Manufacturer),
		},
	}
}

func AdvConfigFrom(cfg types.BLEConfig) AdvConfig {
	ms := func(v uint16) time.Duration { return time.Duration(v) * time.Millisecond }
	return AdvConfig{
		Name:               cfg.Name,
		Interval:           ms(cfg.AdvIntervalMs),
		ServiceUUIDs:       []string{SerialUUID(SerialServiceID)},
		CompanyID:          cfg.CompanyID,
		MfgData:            []byte{byte(cfg.Appearance), byte(cfg.Appearance >> 8)},
		MinConnInterval:    ms(cfg.MinConnIntervalMs),
		MaxConnInterval:    ms(cfg.MaxConnIntervalMs),
		SupervisionTimeout: ms(cfg.SupervisionTimeoutMs),
	}
}
