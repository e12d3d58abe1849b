package modbustcp

import (
	"io"

	modbustcpruntime "ridengateway/pkg/protocol/modbustcp/runtime"
	"ridengateway/pkg/utils/binutil"
)

// MBAPHeader frames one Modbus TCP ADU. Length counts the unit id plus
// the PDU that follows the header.
type MBAPHeader struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
}

// ReadADU reads one MBAP header and its PDU off the stream.
func ReadADU(r io.Reader) (MBAPHeader, []byte, error) {
	raw := make([]byte, modbustcpruntime.MBAPHeaderLength)
	if _, err := io.ReadFull(r, raw); err != nil {
		return MBAPHeader{}, nil, err
	}
	header := MBAPHeader{
		TransactionID: binutil.ParseUint16BigEndian(raw[0:]),
		ProtocolID:    binutil.ParseUint16BigEndian(raw[2:]),
		Length:        binutil.ParseUint16BigEndian(raw[4:]),
		UnitID:        raw[6],
	}
	if header.ProtocolID != modbustcpruntime.ProtocolModbus {
		return MBAPHeader{}, nil, modbustcpruntime.ErrProtocolID
	}
	if header.Length < 2 || header.Length > modbustcpruntime.MaxPDULength+1 {
		return MBAPHeader{}, nil, modbustcpruntime.ErrLengthField
	}
	pdu := make([]byte, header.Length-1)
	if _, err := io.ReadFull(r, pdu); err != nil {
		return MBAPHeader{}, nil, err
	}
	return header, pdu, nil
}

// WriteADU frames a PDU under the given transaction and unit id.
func WriteADU(w io.Writer, transactionID uint16, unitID uint8, pdu []byte) error {
	frame := make([]byte, modbustcpruntime.MBAPHeaderLength+len(pdu))
	binutil.WriteUint16(frame[0:], transactionID)
	binutil.WriteUint16(frame[2:], modbustcpruntime.ProtocolModbus)
	binutil.WriteUint16(frame[4:], uint16(len(pdu)+1))
	frame[6] = unitID
	copy(frame[modbustcpruntime.MBAPHeaderLength:], pdu)
	_, err := w.Write(frame)
	return err
}

// ExceptionPDU builds the two-byte exception reply for a function code.
func ExceptionPDU(functionCode uint8, exceptionCode uint8) []byte {
	return []byte{functionCode | 0x80, exceptionCode}
}
