package psu

import "time"

func (s Scale) VoltageFromRaw(value uint16) float64 { return float64(value) / s.Voltage }
func (s Scale) CurrentFromRaw(value uint16) float64 { return float64(value) / s.Current }
func (s Scale) VoltageInFromRaw(value uint16) float64 { return float64(value) / s.VoltageIn }

func (s Scale) VoltageToRaw(voltage float64) uint16 { return uint16(voltage * s.Voltage) }
func (s Scale) CurrentToRaw(current float64) uint16 { return uint16(current * s.Current) }

// PowerFromRaw decodes the 32-bit power value split across two cells.
func (s Scale) PowerFromRaw(high, low uint16) float64 {
	return float64(uint32(high)<<16+uint32(low)) / s.Power
}

// TemperatureFromRaw decodes a sign/magnitude cell pair. A zero sign cell
// means positive, any other value negative.
func TemperatureFromRaw(sign, magnitude uint16) float64 {
	if sign == 0 {
		return float64(magnitude)
	}
	return -float64(magnitude)
}

// AccumulatorFromRaw decodes the Ah and Wh counters, 32 bits in milli-units.
func AccumulatorFromRaw(high, low uint16) float64 {
	return float64(uint32(high)<<16+uint32(low)) / 1000.0
}

// ClockFromRaw decodes the six clock cells {year, month, day, hour, minute, second}.
func ClockFromRaw(cells []uint16) time.Time {
	return time.Date(int(cells[0]), time.Month(cells[1]), int(cells[2]),
		int(cells[3]), int(cells[4]), int(cells[5]), 0, time.Local)
}

// ClockToRaw encodes a wall-clock time into the six clock cells.
func ClockToRaw(t time.Time) []uint16 {
	return []uint16{
		uint16(t.Year()),
		uint16(t.Month()),
		uint16(t.Day()),
		uint16(t.Hour()),
		uint16(t.Minute()),
		uint16(t.Second()),
	}
}

// PresetFromRaw decodes one four-cell preset slot {V, I, OVP, OCP}.
func (s Scale) PresetFromRaw(cells []uint16) Preset {
	return Preset{
		Voltage:               s.VoltageFromRaw(cells[0]),
		Current:               s.CurrentFromRaw(cells[1]),
		OverVoltageProtection: s.VoltageFromRaw(cells[2]),
		OverCurrentProtection: s.CurrentFromRaw(cells[3]),
	}
}

// PresetToRaw encodes one preset slot into its four cells.
func (s Scale) PresetToRaw(preset Preset) []uint16 {
	return []uint16{
		s.VoltageToRaw(preset.Voltage),
		s.CurrentToRaw(preset.Current),
		s.VoltageToRaw(preset.OverVoltageProtection),
		s.CurrentToRaw(preset.OverCurrentProtection),
	}
}

// ProtectionFromRaw decodes the protection register.
func ProtectionFromRaw(value uint16) Protection {
	switch value {
	case 1:
		return ProtectionOVP
	case 2:
		return ProtectionOCP
	default:
		return ProtectionNone
	}
}

// OutputModeFromRaw decodes the regulation mode register.
func OutputModeFromRaw(value uint16) OutputMode {
	switch value {
	case 0:
		return OutputModeConstantVoltage
	case 1:
		return OutputModeConstantCurrent
	default:
		return OutputModeUnknown
	}
}

// DecodeAllValues assembles a snapshot from the raw register file 0..M9_OCP.
func (s Scale) DecodeAllValues(values []uint16) AllValues {
	all := AllValues{
		SystemTemperatureCelsius:    TemperatureFromRaw(values[RegSystemTempCelsiusSign], values[RegSystemTempCelsius]),
		SystemTemperatureFahrenheit: TemperatureFromRaw(values[RegSystemTempFahrenheitSign], values[RegSystemTempFahrenheit]),
		VoltageSet:                  s.VoltageFromRaw(values[RegVoltageSet]),
		CurrentSet:                  s.CurrentFromRaw(values[RegCurrentSet]),
		VoltageOut:                  s.VoltageFromRaw(values[RegVoltageOut]),
		CurrentOut:                  s.CurrentFromRaw(values[RegCurrentOut]),
		PowerOut:                    s.PowerFromRaw(values[RegPowerOutHigh], values[RegPowerOutLow]),
		VoltageIn:                   s.VoltageInFromRaw(values[RegVoltageIn]),
		KeypadLocked:                values[RegKeypad] != 0,
		Protection:                  ProtectionFromRaw(values[RegProtection]),
		OutputMode:                  OutputModeFromRaw(values[RegOutputMode]),
		OutputOn:                    values[RegOutput] != 0,
		CurrentRange:                values[RegCurrentRange],
		BatteryMode:                 values[RegBatteryMode] != 0,
		VoltageBattery:              s.VoltageFromRaw(values[RegVoltageBattery]),
		ProbeTemperatureCelsius:     TemperatureFromRaw(values[RegProbeTempCelsiusSign], values[RegProbeTempCelsius]),
		ProbeTemperatureFahrenheit:  TemperatureFromRaw(values[RegProbeTempFahrenheitSign], values[RegProbeTempFahrenheit]),
		AmpereHour:                  AccumulatorFromRaw(values[RegAmpereHourHigh], values[RegAmpereHourLow]),
		WattHour:                    AccumulatorFromRaw(values[RegWattHourHigh], values[RegWattHourLow]),
		Clock:                       ClockFromRaw(values[RegYear : RegSecond+1]),
		TakeOk:                      values[RegTakeOk] != 0,
		TakeOut:                     values[RegTakeOut] != 0,
		PowerOnBoot:                 values[RegPowerOnBoot] != 0,
		BuzzerEnabled:               values[RegBuzzer] != 0,
		Logo:                        values[RegLogo] != 0,
		Language:                    values[RegLanguage],
		Brightness:                  values[RegBrightness],
		Calibration: Calibration{
			VOutZero:   values[RegVOutZero],
			VOutScale:  values[RegVOutScale],
			VBackZero:  values[RegVBackZero],
			VBackScale: values[RegVBackScale],
			IOutZero:   values[RegIOutZero],
			IOutScale:  values[RegIOutScale],
			IBackZero:  values[RegIBackZero],
			IBackScale: values[RegIBackScale],
		},
	}
	for index := 0; index < NumberOfPresets; index++ {
		first := PresetReg(index + 1)
		all.Presets[index] = s.PresetFromRaw(values[first : first+PresetStride])
	}
	return all
}
