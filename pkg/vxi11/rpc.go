package vxi11

import (
	"io"

	vxi11runtime "ridengateway/pkg/vxi11/runtime"

	"ridengateway/pkg/utils/binutil"
)

// rpcCall is one decoded ONC RPC call with its argument payload still
// serialized.
type rpcCall struct {
	Xid       uint32
	Program   uint32
	Version   uint32
	Procedure uint32
	Args      *xdrDecoder
}

// decodeCall parses the common call header including both auth blocks.
func decodeCall(message []byte) (*rpcCall, error) {
	d := newXdrDecoder(message)
	xid, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	messageType, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if messageType != vxi11runtime.MessageTypeCall {
		return nil, vxi11runtime.ErrNotCall
	}
	rpcVersion, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if rpcVersion != vxi11runtime.RpcVersion {
		return nil, vxi11runtime.ErrRpcVersion
	}
	program, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	version, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	procedure, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	for i := 0; i < 2; i++ {
		if _, err := d.Uint32(); err != nil {
			return nil, err
		}
		length, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		if err := d.Skip(int(length)); err != nil {
			return nil, err
		}
	}
	return &rpcCall{
		Xid:       xid,
		Program:   program,
		Version:   version,
		Procedure: procedure,
		Args:      d,
	}, nil
}

// encodeReply builds an accepted reply carrying the given status and
// result payload.
func encodeReply(xid, acceptStatus uint32, results []byte) []byte {
	e := &xdrEncoder{}
	e.Uint32(xid)
	e.Uint32(vxi11runtime.MessageTypeReply)
	e.Uint32(vxi11runtime.ReplyAccepted)
	e.Uint32(0)
	e.Uint32(0)
	e.Uint32(acceptStatus)
	e.buf = append(e.buf, results...)
	return e.Bytes()
}

// readRecord assembles one record-marked message off a TCP stream.
func readRecord(r io.Reader) ([]byte, error) {
	var record []byte
	for {
		mark := make([]byte, 4)
		if _, err := io.ReadFull(r, mark); err != nil {
			return nil, err
		}
		header := binutil.ParseUint32BigEndian(mark)
		length := int(header &^ vxi11runtime.FragmentFlag)
		if len(record)+length > vxi11runtime.MaxRecordLength {
			return nil, vxi11runtime.ErrRecordTooLong
		}
		fragment := make([]byte, length)
		if _, err := io.ReadFull(r, fragment); err != nil {
			return nil, err
		}
		record = append(record, fragment...)
		if header&vxi11runtime.FragmentFlag != 0 {
			return record, nil
		}
	}
}

// writeRecord frames the message as a single final fragment.
func writeRecord(w io.Writer, message []byte) error {
	frame := make([]byte, 4+len(message))
	binutil.WriteUint32(frame, vxi11runtime.FragmentFlag|uint32(len(message)))
	copy(frame[4:], message)
	_, err := w.Write(frame)
	return err
}
