package runtime

import (
	"errors"
	"time"
)

var ErrBadConn = errors.New("Rtu bad connection\n")
var ErrSerialPortClosed = errors.New("Serial port closed\n")
var ErrReplyTimeout = errors.New("Rtu reply timeout\n")
var ErrReplyTruncated = errors.New("Rtu message data length not enough\n")
var ErrCRC16Error = errors.New("Rtu message crc16 error\n")
var ErrSlaveMismatch = errors.New("Rtu reply slave address mismatch\n")
var ErrNotConnected = errors.New("Power supply not connected\n")
var ErrExceptionReply = errors.New("Rtu exception reply\n")
var ErrTransactionPending = errors.New("Rtu transaction already pending\n")
var ErrInvalidPreset = errors.New("Preset index out of range\n")

const (
	FunctionReadHolding   uint8 = 0x03
	FunctionWriteSingle   uint8 = 0x06
	FunctionWriteMultiple uint8 = 0x10

	ExceptionFlag uint8 = 0x80

	// ExceptionDeviceFailedToRespond is synthesized towards TCP peers when
	// the serial side does not answer.
	ExceptionDeviceFailedToRespond uint8 = 0x0B

	// MaxBulkWindow bounds one read request. The power supply silently
	// truncates larger reads.
	MaxBulkWindow = 20

	DefaultSlaveAddress uint8 = 1

	DefaultReplyTimeout = 500 * time.Millisecond

	// MaxFrameSize is address + 253-byte PDU + crc16.
	MaxFrameSize = 256

	// BitsPerChar is one serial character at 8N1 including start and stop bits.
	BitsPerChar = 10
)

// InterFrameDelay returns the quiet period the bus must observe between
// frames, 3.5 character times at the given baud rate.
func InterFrameDelay(baudRate int) time.Duration {
	if baudRate <= 0 {
		return 2 * time.Millisecond
	}
	bits := float64(BitsPerChar) * 3.5
	return time.Duration(bits / float64(baudRate) * float64(time.Second))
}
