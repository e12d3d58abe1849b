package scpi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ridengateway/pkg/psu"
)

type fakeDevice struct {
	model      psu.Model
	serial     uint32
	firmware   uint16
	voltageSet float64
	currentSet float64
	voltageOut float64
	currentOut float64
	powerOut   float64
	outputOn   bool
	mode       psu.OutputMode
	protection psu.Protection
	ovp        float64
	ocp        float64
	recalled   int
	brightness uint16
	language   uint16
	clock      time.Time
	buzzer     bool
}

func newFakeDevice() *fakeDevice {
	model, _ := psu.DecodeModel(60062)
	return &fakeDevice{
		model:    model,
		serial:   12345,
		firmware: 141,
		clock:    time.Date(2024, 3, 17, 13, 45, 9, 0, time.UTC),
	}
}

func (d *fakeDevice) Model() psu.Model      { return d.model }
func (d *fakeDevice) SerialNumber() uint32  { return d.serial }
func (d *fakeDevice) Firmware() uint16      { return d.firmware }

func (d *fakeDevice) GetVoltageSet(ctx context.Context) (float64, error) { return d.voltageSet, nil }
func (d *fakeDevice) SetVoltageSet(ctx context.Context, voltage float64) error {
	d.voltageSet = voltage
	return nil
}
func (d *fakeDevice) GetCurrentSet(ctx context.Context) (float64, error) { return d.currentSet, nil }
func (d *fakeDevice) SetCurrentSet(ctx context.Context, current float64) error {
	d.currentSet = current
	return nil
}
func (d *fakeDevice) GetVoltageOut(ctx context.Context) (float64, error) { return d.voltageOut, nil }
func (d *fakeDevice) GetCurrentOut(ctx context.Context) (float64, error) { return d.currentOut, nil }
func (d *fakeDevice) GetPowerOut(ctx context.Context) (float64, error)   { return d.powerOut, nil }
func (d *fakeDevice) GetOutputOn(ctx context.Context) (bool, error)      { return d.outputOn, nil }
func (d *fakeDevice) SetOutputOn(ctx context.Context, on bool) error {
	d.outputOn = on
	return nil
}
func (d *fakeDevice) GetOutputMode(ctx context.Context) (psu.OutputMode, error) { return d.mode, nil }
func (d *fakeDevice) GetProtection(ctx context.Context) (psu.Protection, error) {
	return d.protection, nil
}
func (d *fakeDevice) SetOverVoltageProtection(ctx context.Context, voltage float64) error {
	d.ovp = voltage
	return nil
}
func (d *fakeDevice) SetOverCurrentProtection(ctx context.Context, current float64) error {
	d.ocp = current
	return nil
}
func (d *fakeDevice) RecallPreset(ctx context.Context, index int) error {
	d.recalled = index
	return nil
}
func (d *fakeDevice) GetBrightness(ctx context.Context) (uint16, error) { return d.brightness, nil }
func (d *fakeDevice) SetBrightness(ctx context.Context, brightness uint16) error {
	d.brightness = brightness
	return nil
}
func (d *fakeDevice) GetLanguage(ctx context.Context) (uint16, error) { return d.language, nil }
func (d *fakeDevice) SetLanguage(ctx context.Context, language uint16) error {
	d.language = language
	return nil
}
func (d *fakeDevice) GetClock(ctx context.Context) (time.Time, error) { return d.clock, nil }
func (d *fakeDevice) SetDate(ctx context.Context, year, month, day int) error {
	d.clock = time.Date(year, time.Month(month), day, d.clock.Hour(), d.clock.Minute(), d.clock.Second(), 0, time.UTC)
	return nil
}
func (d *fakeDevice) SetTime(ctx context.Context, hour, minute, second int) error {
	d.clock = time.Date(d.clock.Year(), d.clock.Month(), d.clock.Day(), hour, minute, second, 0, time.UTC)
	return nil
}
func (d *fakeDevice) GetSystemTemperatureCelsius(ctx context.Context) (float64, error) {
	return 31.5, nil
}
func (d *fakeDevice) GetProbeTemperatureCelsius(ctx context.Context) (float64, error) {
	return 22.25, nil
}
func (d *fakeDevice) IsBuzzerEnabled(ctx context.Context) (bool, error) { return d.buzzer, nil }
func (d *fakeDevice) SetBuzzerEnabled(ctx context.Context, on bool) error {
	d.buzzer = on
	return nil
}

func TestIdentity(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)

	reply := engine.Execute(context.Background(), "*IDN?")
	assert.Equal("Riden,RD6006,00012345,1.41", reply)
}

func TestHeaderForms(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	device.voltageSet = 12.34
	engine := NewEngine(device)
	ctx := context.Background()

	for _, header := range []string{
		"VOLT?",
		"VOLTAGE?",
		":VOLTage?",
		"SOUR:VOLT?",
		"SOURce:VOLTage:LEVel:IMMediate:AMPLitude?",
		"volt?",
	} {
		reply := engine.Execute(ctx, header)
		assert.Equal("12.34", reply, "header %q", header)
		assert.Equal(CodeNoError, engine.Errors().Pop(), "header %q", header)
	}
}

func TestPartialMnemonicRejected(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())

	reply := engine.Execute(context.Background(), "VOLTA?")
	assert.Equal("", reply)
	assert.Equal(CodeUndefinedHeader, engine.Errors().Pop())
}

func TestVoltageSetWithUnit(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	engine.Execute(ctx, "VOLT 5.5V")
	assert.Equal(5.5, device.voltageSet)
	assert.Equal(CodeNoError, engine.Errors().Pop())

	engine.Execute(ctx, "CURR 1.25 A")
	assert.Equal(1.25, device.currentSet)
	assert.Equal(CodeNoError, engine.Errors().Pop())
}

func TestVoltageSetWrongUnit(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)

	engine.Execute(context.Background(), "VOLT 5.5X")
	assert.Equal(0.0, device.voltageSet)
	assert.Equal(CodeDataTypeError, engine.Errors().Pop())
}

func TestMissingParameter(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())

	engine.Execute(context.Background(), "VOLT")
	assert.Equal(CodeMissingParameter, engine.Errors().Pop())
}

func TestUndefinedHeader(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())

	reply := engine.Execute(context.Background(), "FREQuency?")
	assert.Equal("", reply)
	assert.Equal(CodeUndefinedHeader, engine.Errors().Pop())
}

func TestQueryFormMismatch(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())

	// OUTPut:MODE exists only as a query.
	engine.Execute(context.Background(), "OUTP:MODE CV")
	assert.Equal(CodeUndefinedHeader, engine.Errors().Pop())
}

func TestSemicolonChaining(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)

	reply := engine.Execute(context.Background(), "VOLT 3.3; VOLT?; CURR 0.5 ;CURR?")
	assert.Equal("3.3;0.5", reply)
	assert.Equal(3.3, device.voltageSet)
	assert.Equal(0.5, device.currentSet)
}

func TestOutputStateAndMode(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	engine.Execute(ctx, "OUTP ON")
	assert.True(device.outputOn)
	assert.Equal("1", engine.Execute(ctx, "OUTPut:STATe?"))

	engine.Execute(ctx, "OUTP 0")
	assert.False(device.outputOn)

	device.mode = psu.OutputModeConstantCurrent
	assert.Equal("CC", engine.Execute(ctx, "OUTP:MODE?"))
	device.mode = psu.OutputModeUnknown
	assert.Equal("XX", engine.Execute(ctx, "OUTP:MODE?"))
}

func TestProtectionTripped(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	device.protection = psu.ProtectionOVP
	assert.Equal("1", engine.Execute(ctx, "VOLT:PROT:TRIP?"))
	assert.Equal("0", engine.Execute(ctx, "CURR:PROT:TRIP?"))

	device.protection = psu.ProtectionOCP
	assert.Equal("0", engine.Execute(ctx, "VOLT:PROT:TRIP?"))
	assert.Equal("1", engine.Execute(ctx, "CURRent:PROTection:TRIPped?"))
}

func TestProtectionLimits(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	engine.Execute(ctx, "VOLT:LIM 32V")
	assert.Equal(32.0, device.ovp)
	engine.Execute(ctx, "CURR:LIM 3.1")
	assert.Equal(3.1, device.ocp)
}

func TestMeasureTree(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	device.voltageOut = 4.99
	device.currentOut = 0.123
	device.powerOut = 0.61
	engine := NewEngine(device)
	ctx := context.Background()

	assert.Equal("4.99", engine.Execute(ctx, "MEAS:VOLT?"))
	assert.Equal("0.123", engine.Execute(ctx, "MEASure:SCALar:CURRent:DC?"))
	assert.Equal("0.61", engine.Execute(ctx, "MEAS:POW?"))
	assert.Equal("31.5", engine.Execute(ctx, "MEAS:TEMP?"))
	assert.Equal("22.25", engine.Execute(ctx, "MEAS:TEMP? PROBE"))
	assert.Equal("22.25", engine.Execute(ctx, "MEAS:TEMP? 1"))

	engine.Execute(ctx, "MEAS:TEMP? OVEN")
	assert.Equal(CodeIllegalParameterValue, engine.Errors().Pop())
}

func TestRecallPreset(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	engine.Execute(ctx, "*RCL 3")
	assert.Equal(3, device.recalled)
	assert.Equal(CodeNoError, engine.Errors().Pop())

	engine.Execute(ctx, "*RCL 0")
	assert.Equal(CodeIllegalParameterValue, engine.Errors().Pop())
	engine.Execute(ctx, "*RCL 10")
	assert.Equal(CodeIllegalParameterValue, engine.Errors().Pop())
	assert.Equal(3, device.recalled)
}

func TestResetDisablesOutput(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	device.outputOn = true
	engine := NewEngine(device)

	engine.Execute(context.Background(), "*RST")
	assert.False(device.outputOn)
}

func TestSystemErrorQueue(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())
	ctx := context.Background()

	assert.Equal(`0,"No error"`, engine.Execute(ctx, "SYST:ERR?"))

	engine.Execute(ctx, "BOGUS?")
	engine.Execute(ctx, "VOLT 1X")
	assert.Equal("2", engine.Execute(ctx, "SYST:ERR:COUN?"))
	assert.Equal(`-113,"Undefined header"`, engine.Execute(ctx, "SYSTem:ERRor:NEXT?"))
	assert.Equal(`-104,"Data type error"`, engine.Execute(ctx, "SYST:ERR?"))
	assert.Equal(`0,"No error"`, engine.Execute(ctx, "SYST:ERR?"))
}

func TestSystemVersion(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())

	assert.Equal("1999.0", engine.Execute(context.Background(), "SYST:VERS?"))
}

func TestDisplaySubsystem(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	engine.Execute(ctx, "DISP:BRIG 4")
	assert.Equal(uint16(4), device.brightness)
	assert.Equal("4", engine.Execute(ctx, "DISP:BRIG?"))

	engine.Execute(ctx, "DISP:BRIG 6")
	assert.Equal(CodeIllegalParameterValue, engine.Errors().Pop())
	assert.Equal(uint16(4), device.brightness)

	engine.Execute(ctx, "DISP:LANG GERMAN")
	assert.Equal(uint16(2), device.language)
	engine.Execute(ctx, "DISP:LANG 0")
	assert.Equal(uint16(0), device.language)
}

func TestSystemClock(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	assert.Equal("2024,3,17", engine.Execute(ctx, "SYST:DATE?"))
	assert.Equal("13,45,9", engine.Execute(ctx, "SYST:TIME?"))

	engine.Execute(ctx, "SYST:DATE 2025,12,1")
	engine.Execute(ctx, "SYST:TIME 6,5,4")
	assert.Equal("2025,12,1", engine.Execute(ctx, "SYST:DATE?"))
	assert.Equal("6,5,4", engine.Execute(ctx, "SYST:TIME?"))
}

func TestBuzzer(t *testing.T) {
	assert := assert.New(t)
	device := newFakeDevice()
	engine := NewEngine(device)
	ctx := context.Background()

	engine.Execute(ctx, "SYST:BEEP:STAT ON")
	assert.True(device.buzzer)
	assert.Equal("1", engine.Execute(ctx, "SYST:BEEP:STAT?"))
}

func TestEventStatusRegister(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())
	ctx := context.Background()

	// Power-on bit is set at boot and cleared by the read.
	assert.Equal("128", engine.Execute(ctx, "*ESR?"))
	assert.Equal("0", engine.Execute(ctx, "*ESR?"))

	engine.Execute(ctx, "NOSUCH?")
	assert.Equal("32", engine.Execute(ctx, "*ESR?"))
}

func TestStatusByte(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())
	ctx := context.Background()

	engine.Execute(ctx, "*CLS")
	assert.Equal("0", engine.Execute(ctx, "*STB?"))

	engine.Execute(ctx, "NOSUCH?")
	// Error queue bit only, nothing enabled.
	assert.Equal("4", engine.Execute(ctx, "*STB?"))

	engine.Execute(ctx, "*ESE 32; *SRE 36")
	// Error queue 0x04, event summary 0x20, master summary 0x40.
	assert.Equal("100", engine.Execute(ctx, "*STB?"))

	engine.Execute(ctx, "*CLS")
	assert.Equal("0", engine.Execute(ctx, "*STB?"))
}

func TestClearStatus(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())
	ctx := context.Background()

	engine.Execute(ctx, "NOSUCH?")
	engine.Execute(ctx, "*CLS")
	assert.Equal(`0,"No error"`, engine.Execute(ctx, "SYST:ERR?"))
	assert.Equal("0", engine.Execute(ctx, "*ESR?"))
}

func TestOperationComplete(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())
	ctx := context.Background()

	assert.Equal("1", engine.Execute(ctx, "*OPC?"))
	engine.Execute(ctx, "*CLS")
	engine.Execute(ctx, "*OPC")
	assert.Equal("1", engine.Execute(ctx, "*ESR?"))
}

func TestStatusSubsystem(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine(newFakeDevice())
	ctx := context.Background()

	engine.Execute(ctx, "STAT:OPER:ENAB 255")
	assert.Equal("255", engine.Execute(ctx, "STAT:OPER:ENAB?"))
	assert.Equal("0", engine.Execute(ctx, "STAT:OPER?"))
	assert.Equal("0", engine.Execute(ctx, "STATus:QUEStionable:EVENt?"))

	engine.Execute(ctx, "STAT:PRES")
	assert.Equal("0", engine.Execute(ctx, "STAT:OPER:ENAB?"))
}
