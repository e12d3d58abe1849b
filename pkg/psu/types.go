package psu

import "time"

// Protection reports which protection circuit tripped.
type Protection uint16

const (
	ProtectionNone Protection = 0
	ProtectionOVP  Protection = 1
	ProtectionOCP  Protection = 2
)

func (p Protection) String() string {
	switch p {
	case ProtectionOVP:
		return "OVP"
	case ProtectionOCP:
		return "OCP"
	default:
		return "None"
	}
}

// OutputMode reports the active regulation mode.
type OutputMode uint16

const (
	OutputModeConstantVoltage OutputMode = 0
	OutputModeConstantCurrent OutputMode = 1
	OutputModeUnknown         OutputMode = 0xffff
)

func (m OutputMode) String() string {
	switch m {
	case OutputModeConstantVoltage:
		return "Constant Voltage"
	case OutputModeConstantCurrent:
		return "Constant Current"
	default:
		return "Unknown"
	}
}

type Preset struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	OverVoltageProtection float64 `json:"overVoltageProtection"`
	OverCurrentProtection float64 `json:"overCurrentProtection"`
}

type Calibration struct {
	VOutZero  uint16 `json:"vOutZero"`
	VOutScale uint16 `json:"vOutScale"`
	VBackZero  uint16 `json:"vBackZero"`
	VBackScale uint16 `json:"vBackScale"`
	IOutZero  uint16 `json:"iOutZero"`
	IOutScale uint16 `json:"iOutScale"`
	IBackZero  uint16 `json:"iBackZero"`
	IBackScale uint16 `json:"iBackScale"`
}

// AllValues is a snapshot of the full register file, decoded.
type AllValues struct {
	SystemTemperatureCelsius    float64 `json:"systemTemperatureCelsius"`
	SystemTemperatureFahrenheit float64 `json:"systemTemperatureFahrenheit"`
	VoltageSet                  float64 `json:"voltageSet"`
	CurrentSet                  float64 `json:"currentSet"`
	VoltageOut                  float64 `json:"voltageOut"`
	CurrentOut                  float64 `json:"currentOut"`
	PowerOut                    float64 `json:"powerOut"`
	VoltageIn                   float64 `json:"voltageIn"`
	KeypadLocked                bool    `json:"keypadLocked"`
	Protection                  Protection `json:"protection"`
	OutputMode                  OutputMode `json:"outputMode"`
	OutputOn                    bool    `json:"outputOn"`
	CurrentRange                uint16  `json:"currentRange"`
	BatteryMode                 bool    `json:"batteryMode"`
	VoltageBattery              float64 `json:"voltageBattery"`
	ProbeTemperatureCelsius     float64 `json:"probeTemperatureCelsius"`
	ProbeTemperatureFahrenheit  float64 `json:"probeTemperatureFahrenheit"`
	AmpereHour                  float64 `json:"ampereHour"`
	WattHour                    float64 `json:"wattHour"`
	Clock                       time.Time `json:"clock"`
	TakeOk                      bool    `json:"takeOk"`
	TakeOut                     bool    `json:"takeOut"`
	PowerOnBoot                 bool    `json:"powerOnBoot"`
	BuzzerEnabled               bool    `json:"buzzerEnabled"`
	Logo                        bool    `json:"logo"`
	Language                    uint16  `json:"language"`
	Brightness                  uint16  `json:"brightness"`
	Calibration                 Calibration `json:"calibration"`
	// Presets[0] holds M1, Presets[8] holds M9.
	Presets [NumberOfPresets]Preset `json:"presets"`
}
