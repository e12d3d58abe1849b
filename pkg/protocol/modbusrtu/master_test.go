package modbusrtu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	modbusrturuntime "ridengateway/pkg/protocol/modbusrtu/runtime"
)

func TestAppendCrc(t *testing.T) {
	assert := assert.New(t)

	frame := appendCrc([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x02})
	assert.Equal([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x02, 0xC4, 0x0B}, frame)
}

func TestValidateReply(t *testing.T) {
	assert := assert.New(t)
	m := NewMaster(MasterOptions{})

	assert.NoError(m.validateReply([]byte{0x01, 0x03, 0x04}, modbusrturuntime.FunctionReadHolding))

	err := m.validateReply([]byte{0x02, 0x03, 0x04}, modbusrturuntime.FunctionReadHolding)
	assert.Equal(modbusrturuntime.ErrSlaveMismatch, err)

	err = m.validateReply([]byte{0x01, 0x83, 0x02}, modbusrturuntime.FunctionReadHolding)
	assert.Equal(modbusrturuntime.ErrExceptionReply, err)
}

func TestMasterDefaults(t *testing.T) {
	assert := assert.New(t)
	m := NewMaster(MasterOptions{})

	assert.Equal(modbusrturuntime.DefaultSlaveAddress, m.options.SlaveAddress)
	assert.Equal(modbusrturuntime.DefaultReplyTimeout, m.options.ReplyTimeout)
	assert.False(m.IsConnected())
}

func TestExpectedFrameLength(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0, expectedFrameLength([]byte{0x01}))

	// Read holding waits for the byte count, then frames on it.
	assert.Equal(0, expectedFrameLength([]byte{0x01, 0x03}))
	assert.Equal(9, expectedFrameLength([]byte{0x01, 0x03, 0x04}))

	// Write echoes are fixed length.
	assert.Equal(8, expectedFrameLength([]byte{0x01, 0x06}))
	assert.Equal(8, expectedFrameLength([]byte{0x01, 0x10}))

	// Exceptions are five bytes.
	assert.Equal(5, expectedFrameLength([]byte{0x01, 0x83}))

	// Unknown function codes cannot be framed up front.
	assert.Equal(-1, expectedFrameLength([]byte{0x01, 0x41}))
}
