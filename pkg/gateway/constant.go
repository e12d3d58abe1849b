package gateway

import "errors"

var ErrUnknownProtocol = errors.New("Unknown client protocol\n")
var ErrEmptyFirmware = errors.New("Firmware image is empty\n")

const (
	ProtocolScpi      = "SCPI"
	ProtocolModbusTcp = "Modbus TCP"
	ProtocolVxi11     = "VXI-11"

	metaKey = "config/meta.json"

	// qpsProbeCount is the burst length of the rate diagnostic.
	qpsProbeCount = 200
)
