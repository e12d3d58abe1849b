package config

import "errors"

var ErrUnknownTimezone = errors.New("Unknown timezone name\n")
var ErrBaudRate = errors.New("Unsupported uart baudrate\n")
var ErrUnknownVersion = errors.New("Unknown configuration record version\n")

const (
	// CurrentVersion is the record layout written by this build. Version 1
	// predates the configurable uart baudrate.
	CurrentVersion = 2

	DefaultTimezoneName = "Etc/UTC"
	DefaultBaudRate     = 115200
)

// BaudRates lists the rates the power supply can be set to on its
// front panel.
var BaudRates = []uint32{9600, 19200, 38400, 57600, 115200}

// Record is the persisted gateway configuration, layout version 2.
type Record struct {
	Version      int    `json:"version" mapstructure:"version"`
	TimezoneName string `json:"timezoneName" mapstructure:"timezoneName"`
	PortalOnBoot bool   `json:"portalOnBoot" mapstructure:"portalOnBoot"`
	UartBaudRate uint32 `json:"uartBaudRate" mapstructure:"uartBaudRate"`
}

// recordV1 is the original layout without a baudrate field.
type recordV1 struct {
	Version      int    `mapstructure:"version"`
	TimezoneName string `mapstructure:"timezoneName"`
	PortalOnBoot bool   `mapstructure:"portalOnBoot"`
}

func defaultRecord() Record {
	return Record{
		Version:      CurrentVersion,
		TimezoneName: DefaultTimezoneName,
		UartBaudRate: DefaultBaudRate,
	}
}

func validBaudRate(rate uint32) bool {
	for _, b := range BaudRates {
		if b == rate {
			return true
		}
	}
	return false
}
