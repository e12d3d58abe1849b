package vxi11

import (
	"testing"

	"github.com/stretchr/testify/assert"

	vxi11runtime "ridengateway/pkg/vxi11/runtime"
)

func TestXdrUint32Roundtrip(t *testing.T) {
	assert := assert.New(t)

	e := &xdrEncoder{}
	e.Uint32(0xDEADBEEF).Uint32(7)
	assert.Equal([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00, 0x00, 0x07}, e.Bytes())

	d := newXdrDecoder(e.Bytes())
	first, err := d.Uint32()
	assert.NoError(err)
	assert.Equal(uint32(0xDEADBEEF), first)
	second, err := d.Uint32()
	assert.NoError(err)
	assert.Equal(uint32(7), second)

	_, err = d.Uint32()
	assert.Equal(vxi11runtime.ErrMessageTruncated, err)
}

func TestXdrOpaquePadding(t *testing.T) {
	assert := assert.New(t)

	e := &xdrEncoder{}
	e.Opaque([]byte("*IDN?"))
	// 4 byte length, 5 payload bytes, 3 padding bytes.
	assert.Equal(12, len(e.Bytes()))
	assert.Equal([]byte{0, 0, 0, 5}, e.Bytes()[:4])
	assert.Equal([]byte{0, 0, 0}, e.Bytes()[9:])

	d := newXdrDecoder(e.Bytes())
	data, err := d.Opaque()
	assert.NoError(err)
	assert.Equal([]byte("*IDN?"), data)
}

func TestXdrOpaqueAligned(t *testing.T) {
	assert := assert.New(t)

	e := &xdrEncoder{}
	e.Opaque([]byte("ABCD"))
	assert.Equal(8, len(e.Bytes()))

	d := newXdrDecoder(e.Bytes())
	data, err := d.Opaque()
	assert.NoError(err)
	assert.Equal([]byte("ABCD"), data)
	_, err = d.Uint32()
	assert.Equal(vxi11runtime.ErrMessageTruncated, err)
}

func TestXdrOpaqueTruncated(t *testing.T) {
	assert := assert.New(t)

	d := newXdrDecoder([]byte{0, 0, 0, 9, 'x'})
	_, err := d.Opaque()
	assert.Equal(vxi11runtime.ErrMessageTruncated, err)
}

func TestXdrSkip(t *testing.T) {
	assert := assert.New(t)

	d := newXdrDecoder([]byte{1, 2, 3, 4, 0, 0, 0, 42})
	assert.NoError(d.Skip(3))
	value, err := d.Uint32()
	assert.NoError(err)
	assert.Equal(uint32(42), value)
}
