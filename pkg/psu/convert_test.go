package psu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScaleConversions(t *testing.T) {
	assert := assert.New(t)
	s := Scale{Voltage: 100, Current: 1000, Power: 100, VoltageIn: 100}

	assert.Equal(12.34, s.VoltageFromRaw(1234))
	assert.Equal(1.234, s.CurrentFromRaw(1234))
	assert.Equal(uint16(1225), s.VoltageToRaw(12.25))
	assert.Equal(uint16(1500), s.CurrentToRaw(1.5))
	assert.Equal(0.67, s.PowerFromRaw(0, 67))
	assert.Equal(float64(0x10000)/100, s.PowerFromRaw(1, 0))
}

func TestTemperatureFromRaw(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(25.0, TemperatureFromRaw(0, 25))
	assert.Equal(-7.0, TemperatureFromRaw(1, 7))
	assert.Equal(-3.0, TemperatureFromRaw(0xFFFF, 3))
}

func TestAccumulatorFromRaw(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1.5, AccumulatorFromRaw(0, 1500))
	assert.Equal(float64(0x10000)/1000, AccumulatorFromRaw(1, 0))
}

func TestClockRoundtrip(t *testing.T) {
	assert := assert.New(t)

	when := time.Date(2024, 3, 17, 13, 45, 9, 0, time.Local)
	cells := ClockToRaw(when)
	assert.Equal([]uint16{2024, 3, 17, 13, 45, 9}, cells)
	assert.True(when.Equal(ClockFromRaw(cells)))
}

func TestProtectionFromRaw(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(ProtectionNone, ProtectionFromRaw(0))
	assert.Equal(ProtectionOVP, ProtectionFromRaw(1))
	assert.Equal(ProtectionOCP, ProtectionFromRaw(2))
	assert.Equal(ProtectionNone, ProtectionFromRaw(7))
}

func TestOutputModeFromRaw(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(OutputModeConstantVoltage, OutputModeFromRaw(0))
	assert.Equal(OutputModeConstantCurrent, OutputModeFromRaw(1))
	assert.Equal(OutputModeUnknown, OutputModeFromRaw(2))
}

func TestPresetRoundtrip(t *testing.T) {
	assert := assert.New(t)
	s := Scale{Voltage: 100, Current: 1000, Power: 100, VoltageIn: 100}

	preset := Preset{
		Voltage:               5,
		Current:               1.5,
		OverVoltageProtection: 6.2,
		OverCurrentProtection: 2,
	}
	cells := s.PresetToRaw(preset)
	assert.Equal([]uint16{500, 1500, 620, 2000}, cells)
	assert.Equal(preset, s.PresetFromRaw(cells))
}
