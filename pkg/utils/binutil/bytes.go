package binutil

// Big endian byte order helpers shared by the Modbus and XDR codecs.

func ParseUint16BigEndian(buf []byte) uint16 {
	return uint16(buf[0])<<8 + uint16(buf[1])
}

func ParseUint32BigEndian(buf []byte) uint32 {
	return uint32(buf[0])<<24 +
		uint32(buf[1])<<16 +
		uint32(buf[2])<<8 +
		uint32(buf[3])
}

func WriteUint16(buf []byte, value uint16) {
	buf[0] = byte(value >> 8)
	buf[1] = byte(value)
}

func WriteUint32(buf []byte, value uint32) {
	buf[0] = byte(value >> 24)
	buf[1] = byte(value >> 16)
	buf[2] = byte(value >> 8)
	buf[3] = byte(value)
}

func Uint32ToBytes(value uint32) []byte {
	buf := make([]byte, 4)
	WriteUint32(buf, value)
	return buf
}

// Dup copies a slice so the caller may keep it past the backing
// buffer's reuse.
func Dup(buf []byte) []byte {
	dup := make([]byte, len(buf))
	copy(dup, buf)
	return dup
}
