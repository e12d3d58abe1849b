package psu

import "fmt"

// Scale maps raw register values to physical units, one divisor per quantity.
// The set is fixed once the device id has been decoded.
type Scale struct {
	Voltage   float64
	Current   float64
	Power     float64
	VoltageIn float64
}

var defaultScale = Scale{Voltage: 100, Current: 100, Power: 100, VoltageIn: 100}

// Model identifies the power supply family decoded from the Id register.
type Model struct {
	Type  string
	Scale Scale
	// CurrentScaleFromRange marks models whose current divisor depends on
	// the active current range and must be read off the bus after connect.
	CurrentScaleFromRange bool
}

// DecodeModel maps the 16-bit id register to a model and its scaling set.
func DecodeModel(id uint16) (Model, error) {
	switch {
	case 60180 <= id && id <= 60189:
		return Model{Type: "RD6018", Scale: defaultScale}, nil
	case 60120 <= id && id <= 60124:
		return Model{Type: "RD6012", Scale: defaultScale}, nil
	case 60125 <= id && id <= 60129:
		s := defaultScale
		s.Voltage = 1000
		s.Power = 1000
		return Model{Type: "RD6012P", Scale: s, CurrentScaleFromRange: true}, nil
	case 60060 <= id && id <= 60064:
		s := defaultScale
		s.Current = 1000
		return Model{Type: "RD6006", Scale: s}, nil
	case id == 60065:
		return Model{Type: "RD6006P", Scale: Scale{Voltage: 1000, Current: 10000, Power: 1000, VoltageIn: 100}}, nil
	case id == 60301:
		return Model{Type: "RD6030", Scale: defaultScale}, nil
	case id >= 60241:
		return Model{Type: "RD6024", Scale: defaultScale}, nil
	default:
		return Model{}, fmt.Errorf("unrecognized power supply id %d", id)
	}
}

// CurrentScaleForRange resolves the range-dependent current divisor.
// Range 0 is the low range with finer resolution.
func CurrentScaleForRange(currentRange uint16) float64 {
	if currentRange == 0 {
		return 10000
	}
	return 1000
}

// Hostname derives the instance name advertised on the network.
func Hostname(modelType string, serialNumber uint32) string {
	return fmt.Sprintf("%s-%08d", modelType, serialNumber)
}

// FirmwareString renders the firmware register as major.minor.
func FirmwareString(firmware uint16) string {
	return fmt.Sprintf("%d.%d", firmware/100, firmware%100)
}
