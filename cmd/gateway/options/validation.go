package options

import "fmt"

func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}
	if o.SerialPort == "" {
		errs = append(errs, fmt.Errorf("serial-port must not be empty"))
	}
	if o.VxiPortEnd != 0 && o.VxiPortEnd < o.VxiPortStart {
		errs = append(errs, fmt.Errorf("vxi-port-end %d is below vxi-port-start %d", o.VxiPortEnd, o.VxiPortStart))
	}
	if o.MqttInterval <= 0 {
		errs = append(errs, fmt.Errorf("mqtt-interval must be positive"))
	}

	return errs
}
