package modbustcp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	modbustcpruntime "ridengateway/pkg/protocol/modbustcp/runtime"
)

func TestAduRoundtrip(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	pdu := []byte{0x03, 0x00, 0x08, 0x00, 0x02}
	assert.NoError(WriteADU(&buf, 0x1234, 1, pdu))

	header, got, err := ReadADU(&buf)
	assert.NoError(err)
	assert.Equal(uint16(0x1234), header.TransactionID)
	assert.Equal(uint16(0), header.ProtocolID)
	assert.Equal(uint16(len(pdu)+1), header.Length)
	assert.Equal(uint8(1), header.UnitID)
	assert.Equal(pdu, got)
}

func TestReadAduRejectsProtocolID(t *testing.T) {
	assert := assert.New(t)

	frame := []byte{0x00, 0x01, 0x00, 0x99, 0x00, 0x02, 0x01, 0x03}
	_, _, err := ReadADU(bytes.NewReader(frame))
	assert.Equal(modbustcpruntime.ErrProtocolID, err)
}

func TestReadAduRejectsLength(t *testing.T) {
	assert := assert.New(t)

	// Length 1 leaves no room for a function code.
	short := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01}
	_, _, err := ReadADU(bytes.NewReader(short))
	assert.Equal(modbustcpruntime.ErrLengthField, err)

	// Length above the PDU bound.
	long := []byte{0x00, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01}
	_, _, err = ReadADU(bytes.NewReader(long))
	assert.Equal(modbustcpruntime.ErrLengthField, err)
}

func TestReadAduTruncatedPdu(t *testing.T) {
	assert := assert.New(t)

	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03}
	_, _, err := ReadADU(bytes.NewReader(frame))
	assert.Error(err)
}

func TestExceptionPdu(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]byte{0x83, 0x0B}, ExceptionPDU(0x03, 0x0B))
	assert.Equal([]byte{0x90, 0x04}, ExceptionPDU(0x10, 0x04))
}
