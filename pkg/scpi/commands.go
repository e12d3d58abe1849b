package scpi

import (
	"context"
	"fmt"
	"time"

	scpiruntime "ridengateway/pkg/scpi/runtime"

	"ridengateway/pkg/psu"
)

// Device is the instrument the command tree drives. The serial master
// satisfies it.
type Device interface {
	Model() psu.Model
	SerialNumber() uint32
	Firmware() uint16

	GetVoltageSet(ctx context.Context) (float64, error)
	SetVoltageSet(ctx context.Context, voltage float64) error
	GetCurrentSet(ctx context.Context) (float64, error)
	SetCurrentSet(ctx context.Context, current float64) error
	GetVoltageOut(ctx context.Context) (float64, error)
	GetCurrentOut(ctx context.Context) (float64, error)
	GetPowerOut(ctx context.Context) (float64, error)
	GetOutputOn(ctx context.Context) (bool, error)
	SetOutputOn(ctx context.Context, on bool) error
	GetOutputMode(ctx context.Context) (psu.OutputMode, error)
	GetProtection(ctx context.Context) (psu.Protection, error)
	SetOverVoltageProtection(ctx context.Context, voltage float64) error
	SetOverCurrentProtection(ctx context.Context, current float64) error
	RecallPreset(ctx context.Context, index int) error
	GetBrightness(ctx context.Context) (uint16, error)
	SetBrightness(ctx context.Context, brightness uint16) error
	GetLanguage(ctx context.Context) (uint16, error)
	SetLanguage(ctx context.Context, language uint16) error
	GetClock(ctx context.Context) (time.Time, error)
	SetDate(ctx context.Context, year, month, day int) error
	SetTime(ctx context.Context, hour, minute, second int) error
	GetSystemTemperatureCelsius(ctx context.Context) (float64, error)
	GetProbeTemperatureCelsius(ctx context.Context) (float64, error)
	IsBuzzerEnabled(ctx context.Context) (bool, error)
	SetBuzzerEnabled(ctx context.Context, on bool) error
}

var temperatureChoices = []string{"SYSTEM", "PROBE"}

var languageChoices = []string{"ENGLISH", "CHINESE", "GERMAN", "FRENCH", "RUSSIAN"}

const maxBrightness = 5

// registerCommon wires the IEEE 488.2 mandated commands and the
// SYSTem/STATus subsystems.
func (e *Engine) registerCommon(device Device) {
	e.register("*CLS", func(ctx context.Context, c *Context) error {
		e.status.Clear()
		e.errors.Clear()
		return nil
	})
	e.register("*ESE", func(ctx context.Context, c *Context) error {
		mask, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		e.status.SetEventEnable(uint8(mask))
		return nil
	})
	e.register("*ESE?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.EventEnable()))
		return nil
	})
	e.register("*ESR?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.EventStatus()))
		return nil
	})
	e.register("*IDN?", func(ctx context.Context, c *Context) error {
		c.Reply(formatIdentity(scpiruntime.Manufacturer, device.Model().Type,
			device.SerialNumber(), psu.FirmwareString(device.Firmware())))
		return nil
	})
	e.register("*OPC", func(ctx context.Context, c *Context) error {
		e.status.SetOperationComplete()
		return nil
	})
	e.register("*OPC?", func(ctx context.Context, c *Context) error {
		c.Reply("1")
		return nil
	})
	e.register("*RST", func(ctx context.Context, c *Context) error {
		return device.SetOutputOn(ctx, false)
	})
	e.register("*SRE", func(ctx context.Context, c *Context) error {
		mask, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		e.status.SetServiceRequestEnable(uint8(mask))
		return nil
	})
	e.register("*SRE?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.ServiceRequestEnable()))
		return nil
	})
	e.register("*STB?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.StatusByte(e.errors.Count() > 0)))
		return nil
	})
	e.register("*TST?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(0)
		return nil
	})
	e.register("*WAI", func(ctx context.Context, c *Context) error {
		return nil
	})
	e.register("*RCL", func(ctx context.Context, c *Context) error {
		index, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		if index < 1 || index > psu.NumberOfPresets {
			return CodeIllegalParameterValue
		}
		return device.RecallPreset(ctx, index)
	})

	e.register("SYSTem:ERRor[:NEXT]?", func(ctx context.Context, c *Context) error {
		c.Reply(e.errors.Pop().Response())
		return nil
	})
	e.register("SYSTem:ERRor:COUNt?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(e.errors.Count())
		return nil
	})
	e.register("SYSTem:VERSion?", func(ctx context.Context, c *Context) error {
		c.Reply(scpiruntime.Version)
		return nil
	})

	e.register("STATus:OPERation[:EVENt]?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.OperationEvent()))
		return nil
	})
	e.register("STATus:OPERation:CONDition?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.OperationCondition()))
		return nil
	})
	e.register("STATus:OPERation:ENABle", func(ctx context.Context, c *Context) error {
		mask, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		e.status.SetOperationEnable(uint16(mask))
		return nil
	})
	e.register("STATus:OPERation:ENABle?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.OperationEnable()))
		return nil
	})
	e.register("STATus:QUEStionable[:EVENt]?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.QuestionableEvent()))
		return nil
	})
	e.register("STATus:QUEStionable:CONDition?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.QuestionableCondition()))
		return nil
	})
	e.register("STATus:QUEStionable:ENABle", func(ctx context.Context, c *Context) error {
		mask, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		e.status.SetQuestionableEnable(uint16(mask))
		return nil
	})
	e.register("STATus:QUEStionable:ENABle?", func(ctx context.Context, c *Context) error {
		c.ReplyInt(int(e.status.QuestionableEnable()))
		return nil
	})
	e.register("STATus:PRESet", func(ctx context.Context, c *Context) error {
		e.status.Preset()
		return nil
	})
}

// registerInstrument wires the power supply specific tree.
func (e *Engine) registerInstrument(device Device) {
	e.register("DISPlay:BRIGhtness", func(ctx context.Context, c *Context) error {
		brightness, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		if brightness < 0 || brightness > maxBrightness {
			return CodeIllegalParameterValue
		}
		return device.SetBrightness(ctx, uint16(brightness))
	})
	e.register("DISPlay:BRIGhtness?", func(ctx context.Context, c *Context) error {
		brightness, err := device.GetBrightness(ctx)
		if err != nil {
			return err
		}
		c.ReplyInt(int(brightness))
		return nil
	})
	e.register("DISPlay:LANGuage", func(ctx context.Context, c *Context) error {
		language, err := c.ParamChoice(0, languageChoices)
		if err != nil {
			return err
		}
		return device.SetLanguage(ctx, uint16(language))
	})
	e.register("DISPlay:LANGuage?", func(ctx context.Context, c *Context) error {
		language, err := device.GetLanguage(ctx)
		if err != nil {
			return err
		}
		c.ReplyInt(int(language))
		return nil
	})

	e.register("SYSTem:DATE", func(ctx context.Context, c *Context) error {
		year, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		month, err := c.ParamInt(1)
		if err != nil {
			return err
		}
		day, err := c.ParamInt(2)
		if err != nil {
			return err
		}
		return device.SetDate(ctx, year, month, day)
	})
	e.register("SYSTem:DATE?", func(ctx context.Context, c *Context) error {
		clock, err := device.GetClock(ctx)
		if err != nil {
			return err
		}
		c.Reply(fmt.Sprintf("%d,%d,%d", clock.Year(), int(clock.Month()), clock.Day()))
		return nil
	})
	e.register("SYSTem:TIME", func(ctx context.Context, c *Context) error {
		hour, err := c.ParamInt(0)
		if err != nil {
			return err
		}
		minute, err := c.ParamInt(1)
		if err != nil {
			return err
		}
		second, err := c.ParamInt(2)
		if err != nil {
			return err
		}
		return device.SetTime(ctx, hour, minute, second)
	})
	e.register("SYSTem:TIME?", func(ctx context.Context, c *Context) error {
		clock, err := device.GetClock(ctx)
		if err != nil {
			return err
		}
		c.Reply(fmt.Sprintf("%d,%d,%d", clock.Hour(), clock.Minute(), clock.Second()))
		return nil
	})
	e.register("SYSTem:BEEPer:STATe", func(ctx context.Context, c *Context) error {
		on, err := c.ParamBool(0)
		if err != nil {
			return err
		}
		return device.SetBuzzerEnabled(ctx, on)
	})
	e.register("SYSTem:BEEPer:STATe?", func(ctx context.Context, c *Context) error {
		on, err := device.IsBuzzerEnabled(ctx)
		if err != nil {
			return err
		}
		c.ReplyBool(on)
		return nil
	})

	e.register("OUTPut[:STATe]", func(ctx context.Context, c *Context) error {
		on, err := c.ParamBool(0)
		if err != nil {
			return err
		}
		return device.SetOutputOn(ctx, on)
	})
	e.register("OUTPut[:STATe]?", func(ctx context.Context, c *Context) error {
		on, err := device.GetOutputOn(ctx)
		if err != nil {
			return err
		}
		c.ReplyBool(on)
		return nil
	})
	e.register("OUTPut:MODE?", func(ctx context.Context, c *Context) error {
		mode, err := device.GetOutputMode(ctx)
		if err != nil {
			return err
		}
		switch mode {
		case psu.OutputModeConstantVoltage:
			c.Reply("CV")
		case psu.OutputModeConstantCurrent:
			c.Reply("CC")
		default:
			c.Reply("XX")
		}
		return nil
	})

	e.register("[SOURce]:VOLTage[:LEVel][:IMMediate][:AMPLitude]", func(ctx context.Context, c *Context) error {
		voltage, err := c.ParamNumber(0, "V")
		if err != nil {
			return err
		}
		return device.SetVoltageSet(ctx, voltage)
	})
	e.register("[SOURce]:VOLTage[:LEVel][:IMMediate][:AMPLitude]?", func(ctx context.Context, c *Context) error {
		voltage, err := device.GetVoltageSet(ctx)
		if err != nil {
			return err
		}
		c.ReplyFloat(voltage)
		return nil
	})
	e.register("[SOURce]:VOLTage:LIMit", func(ctx context.Context, c *Context) error {
		voltage, err := c.ParamNumber(0, "V")
		if err != nil {
			return err
		}
		return device.SetOverVoltageProtection(ctx, voltage)
	})
	e.register("[SOURce]:VOLTage:PROTection:TRIPped?", func(ctx context.Context, c *Context) error {
		protection, err := device.GetProtection(ctx)
		if err != nil {
			return err
		}
		c.ReplyBool(protection == psu.ProtectionOVP)
		return nil
	})
	e.register("[SOURce]:CURRent[:LEVel][:IMMediate][:AMPLitude]", func(ctx context.Context, c *Context) error {
		current, err := c.ParamNumber(0, "A")
		if err != nil {
			return err
		}
		return device.SetCurrentSet(ctx, current)
	})
	e.register("[SOURce]:CURRent[:LEVel][:IMMediate][:AMPLitude]?", func(ctx context.Context, c *Context) error {
		current, err := device.GetCurrentSet(ctx)
		if err != nil {
			return err
		}
		c.ReplyFloat(current)
		return nil
	})
	e.register("[SOURce]:CURRent:LIMit", func(ctx context.Context, c *Context) error {
		current, err := c.ParamNumber(0, "A")
		if err != nil {
			return err
		}
		return device.SetOverCurrentProtection(ctx, current)
	})
	e.register("[SOURce]:CURRent:PROTection:TRIPped?", func(ctx context.Context, c *Context) error {
		protection, err := device.GetProtection(ctx)
		if err != nil {
			return err
		}
		c.ReplyBool(protection == psu.ProtectionOCP)
		return nil
	})

	e.register("MEASure[:SCALar]:VOLTage[:DC]?", func(ctx context.Context, c *Context) error {
		voltage, err := device.GetVoltageOut(ctx)
		if err != nil {
			return err
		}
		c.ReplyFloat(voltage)
		return nil
	})
	e.register("MEASure[:SCALar]:CURRent[:DC]?", func(ctx context.Context, c *Context) error {
		current, err := device.GetCurrentOut(ctx)
		if err != nil {
			return err
		}
		c.ReplyFloat(current)
		return nil
	})
	e.register("MEASure[:SCALar]:POWer[:DC]?", func(ctx context.Context, c *Context) error {
		power, err := device.GetPowerOut(ctx)
		if err != nil {
			return err
		}
		c.ReplyFloat(power)
		return nil
	})
	e.register("MEASure[:SCALar]:TEMPerature[:THERmistor][:DC]?", func(ctx context.Context, c *Context) error {
		sensor := 0
		if len(c.args) > 0 {
			var err error
			sensor, err = c.ParamChoice(0, temperatureChoices)
			if err != nil {
				return err
			}
		}
		var temperature float64
		var err error
		if sensor == 1 {
			temperature, err = device.GetProbeTemperatureCelsius(ctx)
		} else {
			temperature, err = device.GetSystemTemperatureCelsius(ctx)
		}
		if err != nil {
			return err
		}
		c.ReplyFloat(temperature)
		return nil
	})
}
