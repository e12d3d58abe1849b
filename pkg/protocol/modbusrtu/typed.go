package modbusrtu

import (
	"context"
	"time"

	modbusrturuntime "ridengateway/pkg/protocol/modbusrtu/runtime"
	"ridengateway/pkg/psu"
)

// GetAllValues reads the full register file 0..M9_OCP and decodes it.
// The device silently truncates large reads, so the file is fetched in
// windows of at most MaxBulkWindow registers.
func (m *Master) GetAllValues(ctx context.Context) (psu.AllValues, error) {
	total := int(psu.RegM9OCP) + 1
	values := make([]uint16, 0, total)
	for first := 0; first < total; first += modbusrturuntime.MaxBulkWindow {
		count := modbusrturuntime.MaxBulkWindow
		if first+count > total {
			count = total - first
		}
		window, err := m.ReadHolding(ctx, psu.Reg(first), uint16(count))
		if err != nil {
			return psu.AllValues{}, err
		}
		values = append(values, window...)
	}
	return m.scale.DecodeAllValues(values), nil
}

// RebootToBootloader reboots the device into its serial bootloader. The
// device stops answering afterwards, so failures past the write are
// expected.
func (m *Master) RebootToBootloader(ctx context.Context) error {
	return m.WriteHolding(ctx, psu.RegSystem, psu.BootloaderMagic)
}

func (m *Master) readOne(ctx context.Context, reg psu.Reg) (uint16, error) {
	values, err := m.ReadHolding(ctx, reg, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

func (m *Master) readBool(ctx context.Context, reg psu.Reg) (bool, error) {
	value, err := m.readOne(ctx, reg)
	return value != 0, err
}

func (m *Master) writeBool(ctx context.Context, reg psu.Reg, on bool) error {
	var value uint16
	if on {
		value = 1
	}
	return m.WriteHolding(ctx, reg, value)
}

func (m *Master) readTemperature(ctx context.Context, signReg psu.Reg) (float64, error) {
	values, err := m.ReadHolding(ctx, signReg, 2)
	if err != nil {
		return 0, err
	}
	return psu.TemperatureFromRaw(values[0], values[1]), nil
}

func (m *Master) GetSystemTemperatureCelsius(ctx context.Context) (float64, error) {
	return m.readTemperature(ctx, psu.RegSystemTempCelsiusSign)
}

func (m *Master) GetSystemTemperatureFahrenheit(ctx context.Context) (float64, error) {
	return m.readTemperature(ctx, psu.RegSystemTempFahrenheitSign)
}

func (m *Master) GetProbeTemperatureCelsius(ctx context.Context) (float64, error) {
	return m.readTemperature(ctx, psu.RegProbeTempCelsiusSign)
}

func (m *Master) GetProbeTemperatureFahrenheit(ctx context.Context) (float64, error) {
	return m.readTemperature(ctx, psu.RegProbeTempFahrenheitSign)
}

func (m *Master) GetVoltageSet(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegVoltageSet)
	return m.scale.VoltageFromRaw(value), err
}

func (m *Master) SetVoltageSet(ctx context.Context, voltage float64) error {
	return m.WriteHolding(ctx, psu.RegVoltageSet, m.scale.VoltageToRaw(voltage))
}

func (m *Master) GetCurrentSet(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegCurrentSet)
	return m.scale.CurrentFromRaw(value), err
}

func (m *Master) SetCurrentSet(ctx context.Context, current float64) error {
	return m.WriteHolding(ctx, psu.RegCurrentSet, m.scale.CurrentToRaw(current))
}

func (m *Master) GetVoltageOut(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegVoltageOut)
	return m.scale.VoltageFromRaw(value), err
}

func (m *Master) GetCurrentOut(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegCurrentOut)
	return m.scale.CurrentFromRaw(value), err
}

func (m *Master) GetPowerOut(ctx context.Context) (float64, error) {
	values, err := m.ReadHolding(ctx, psu.RegPowerOutHigh, 2)
	if err != nil {
		return 0, err
	}
	return m.scale.PowerFromRaw(values[0], values[1]), nil
}

func (m *Master) GetVoltageIn(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegVoltageIn)
	return m.scale.VoltageInFromRaw(value), err
}

func (m *Master) IsKeypadLocked(ctx context.Context) (bool, error) {
	return m.readBool(ctx, psu.RegKeypad)
}

func (m *Master) GetProtection(ctx context.Context) (psu.Protection, error) {
	value, err := m.readOne(ctx, psu.RegProtection)
	return psu.ProtectionFromRaw(value), err
}

func (m *Master) GetOutputMode(ctx context.Context) (psu.OutputMode, error) {
	value, err := m.readOne(ctx, psu.RegOutputMode)
	return psu.OutputModeFromRaw(value), err
}

func (m *Master) GetOutputOn(ctx context.Context) (bool, error) {
	return m.readBool(ctx, psu.RegOutput)
}

func (m *Master) SetOutputOn(ctx context.Context, on bool) error {
	return m.writeBool(ctx, psu.RegOutput, on)
}

// RecallPreset activates one of the stored presets. Slots are one-based,
// matching the M1..M9 labels on the front panel.
func (m *Master) RecallPreset(ctx context.Context, index int) error {
	if index < 1 || index > psu.NumberOfPresets {
		return modbusrturuntime.ErrInvalidPreset
	}
	return m.WriteHolding(ctx, psu.RegPreset, uint16(index))
}

func (m *Master) GetCurrentRange(ctx context.Context) (uint16, error) {
	return m.readOne(ctx, psu.RegCurrentRange)
}

func (m *Master) IsBatteryMode(ctx context.Context) (bool, error) {
	return m.readBool(ctx, psu.RegBatteryMode)
}

func (m *Master) GetVoltageBattery(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegVoltageBattery)
	return m.scale.VoltageFromRaw(value), err
}

func (m *Master) GetAmpereHour(ctx context.Context) (float64, error) {
	values, err := m.ReadHolding(ctx, psu.RegAmpereHourHigh, 2)
	if err != nil {
		return 0, err
	}
	return psu.AccumulatorFromRaw(values[0], values[1]), nil
}

func (m *Master) GetWattHour(ctx context.Context) (float64, error) {
	values, err := m.ReadHolding(ctx, psu.RegWattHourHigh, 2)
	if err != nil {
		return 0, err
	}
	return psu.AccumulatorFromRaw(values[0], values[1]), nil
}

func (m *Master) GetClock(ctx context.Context) (time.Time, error) {
	values, err := m.ReadHolding(ctx, psu.RegYear, 6)
	if err != nil {
		return time.Time{}, err
	}
	return psu.ClockFromRaw(values), nil
}

func (m *Master) SetClock(ctx context.Context, t time.Time) error {
	return m.WriteHoldingMany(ctx, psu.RegYear, psu.ClockToRaw(t))
}

func (m *Master) SetDate(ctx context.Context, year, month, day int) error {
	return m.WriteHoldingMany(ctx, psu.RegYear,
		[]uint16{uint16(year), uint16(month), uint16(day)})
}

func (m *Master) SetTime(ctx context.Context, hour, minute, second int) error {
	return m.WriteHoldingMany(ctx, psu.RegHour,
		[]uint16{uint16(hour), uint16(minute), uint16(second)})
}

func (m *Master) IsTakeOk(ctx context.Context) (bool, error)  { return m.readBool(ctx, psu.RegTakeOk) }
func (m *Master) IsTakeOut(ctx context.Context) (bool, error) { return m.readBool(ctx, psu.RegTakeOut) }

func (m *Master) SetTakeOk(ctx context.Context, on bool) error {
	return m.writeBool(ctx, psu.RegTakeOk, on)
}

func (m *Master) SetTakeOut(ctx context.Context, on bool) error {
	return m.writeBool(ctx, psu.RegTakeOut, on)
}

func (m *Master) IsPowerOnBoot(ctx context.Context) (bool, error) {
	return m.readBool(ctx, psu.RegPowerOnBoot)
}

func (m *Master) SetPowerOnBoot(ctx context.Context, on bool) error {
	return m.writeBool(ctx, psu.RegPowerOnBoot, on)
}

func (m *Master) IsBuzzerEnabled(ctx context.Context) (bool, error) {
	return m.readBool(ctx, psu.RegBuzzer)
}

func (m *Master) SetBuzzerEnabled(ctx context.Context, on bool) error {
	return m.writeBool(ctx, psu.RegBuzzer, on)
}

func (m *Master) IsLogo(ctx context.Context) (bool, error) { return m.readBool(ctx, psu.RegLogo) }

func (m *Master) SetLogo(ctx context.Context, on bool) error {
	return m.writeBool(ctx, psu.RegLogo, on)
}

func (m *Master) GetLanguage(ctx context.Context) (uint16, error) {
	return m.readOne(ctx, psu.RegLanguage)
}

func (m *Master) SetLanguage(ctx context.Context, language uint16) error {
	return m.WriteHolding(ctx, psu.RegLanguage, language)
}

func (m *Master) GetBrightness(ctx context.Context) (uint16, error) {
	return m.readOne(ctx, psu.RegBrightness)
}

func (m *Master) SetBrightness(ctx context.Context, brightness uint16) error {
	return m.WriteHolding(ctx, psu.RegBrightness, brightness)
}

// GetPreset reads one four-cell slot. Slots are zero-based here; slot 0
// aliases the live setpoints.
func (m *Master) GetPreset(ctx context.Context, slot int) (psu.Preset, error) {
	values, err := m.ReadHolding(ctx, psu.PresetReg(slot), psu.PresetStride)
	if err != nil {
		return psu.Preset{}, err
	}
	return m.scale.PresetFromRaw(values), nil
}

// SetPreset writes one four-cell slot, zero-based.
func (m *Master) SetPreset(ctx context.Context, slot int, preset psu.Preset) error {
	return m.WriteHoldingMany(ctx, psu.PresetReg(slot), m.scale.PresetToRaw(preset))
}

// GetOverVoltageProtection reads the live OVP threshold, slot 0 cell 2.
func (m *Master) GetOverVoltageProtection(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegM0OVP)
	return m.scale.VoltageFromRaw(value), err
}

func (m *Master) SetOverVoltageProtection(ctx context.Context, voltage float64) error {
	return m.WriteHolding(ctx, psu.RegM0OVP, m.scale.VoltageToRaw(voltage))
}

// GetOverCurrentProtection reads the live OCP threshold, slot 0 cell 3.
func (m *Master) GetOverCurrentProtection(ctx context.Context) (float64, error) {
	value, err := m.readOne(ctx, psu.RegM0OCP)
	return m.scale.CurrentFromRaw(value), err
}

func (m *Master) SetOverCurrentProtection(ctx context.Context, current float64) error {
	return m.WriteHolding(ctx, psu.RegM0OCP, m.scale.CurrentToRaw(current))
}

func (m *Master) GetCalibration(ctx context.Context) (psu.Calibration, error) {
	values, err := m.ReadHolding(ctx, psu.RegVOutZero, 8)
	if err != nil {
		return psu.Calibration{}, err
	}
	return psu.Calibration{
		VOutZero:   values[0],
		VOutScale:  values[1],
		VBackZero:  values[2],
		VBackScale: values[3],
		IOutZero:   values[4],
		IOutScale:  values[5],
		IBackZero:  values[6],
		IBackScale: values[7],
	}, nil
}
