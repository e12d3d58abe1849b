package vxi11

import (
	vxi11runtime "ridengateway/pkg/vxi11/runtime"

	"ridengateway/pkg/utils/binutil"
)

// xdrDecoder walks one serialized message. All quantities are four
// byte aligned big endian, per XDR.
type xdrDecoder struct {
	buf []byte
	off int
}

func newXdrDecoder(buf []byte) *xdrDecoder {
	return &xdrDecoder{buf: buf}
}

func (d *xdrDecoder) Uint32() (uint32, error) {
	if d.off+4 > len(d.buf) {
		return 0, vxi11runtime.ErrMessageTruncated
	}
	value := binutil.ParseUint32BigEndian(d.buf[d.off:])
	d.off += 4
	return value, nil
}

func (d *xdrDecoder) Skip(n int) error {
	n = pad4(n)
	if d.off+n > len(d.buf) {
		return vxi11runtime.ErrMessageTruncated
	}
	d.off += n
	return nil
}

// Opaque reads a length prefixed byte string and its padding.
func (d *xdrDecoder) Opaque() ([]byte, error) {
	length, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if d.off+int(length) > len(d.buf) {
		return nil, vxi11runtime.ErrMessageTruncated
	}
	data := binutil.Dup(d.buf[d.off : d.off+int(length)])
	d.off += pad4(int(length))
	if d.off > len(d.buf) {
		d.off = len(d.buf)
	}
	return data, nil
}

type xdrEncoder struct {
	buf []byte
}

func (e *xdrEncoder) Uint32(value uint32) *xdrEncoder {
	e.buf = append(e.buf, binutil.Uint32ToBytes(value)...)
	return e
}

func (e *xdrEncoder) Opaque(data []byte) *xdrEncoder {
	e.Uint32(uint32(len(data)))
	e.buf = append(e.buf, data...)
	for i := len(data); i%4 != 0; i++ {
		e.buf = append(e.buf, 0)
	}
	return e
}

func (e *xdrEncoder) Bytes() []byte {
	return e.buf
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
