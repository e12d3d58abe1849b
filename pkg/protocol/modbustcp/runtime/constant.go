package runtime

import "errors"

var ErrHeaderTooShort = errors.New("Tcp adu header too short\n")
var ErrProtocolID = errors.New("Tcp adu protocol id is not modbus\n")
var ErrLengthField = errors.New("Tcp adu length field out of range\n")
var ErrTooManyClients = errors.New("Too many modbus tcp clients\n")
var ErrClientNotFound = errors.New("No modbus tcp client with that address\n")

const (
	// MBAPHeaderLength covers transaction id, protocol id, length and unit id.
	MBAPHeaderLength = 7

	ProtocolModbus uint16 = 0

	// MaxPDULength bounds the function code plus data of one request.
	MaxPDULength = 253

	DefaultPort       = 502
	DefaultMaxClients = 4
)
