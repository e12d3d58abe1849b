package vxi11

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	vxi11runtime "ridengateway/pkg/vxi11/runtime"
)

func encodeTestCall(xid, program, version, procedure uint32, args []byte) []byte {
	e := &xdrEncoder{}
	e.Uint32(xid)
	e.Uint32(vxi11runtime.MessageTypeCall)
	e.Uint32(vxi11runtime.RpcVersion)
	e.Uint32(program)
	e.Uint32(version)
	e.Uint32(procedure)
	// Credential and verifier, both AUTH_NONE with empty bodies.
	e.Uint32(0).Uint32(0)
	e.Uint32(0).Uint32(0)
	e.buf = append(e.buf, args...)
	return e.Bytes()
}

func TestDecodeCall(t *testing.T) {
	assert := assert.New(t)

	args := (&xdrEncoder{}).Uint32(77).Bytes()
	call, err := decodeCall(encodeTestCall(42, vxi11runtime.ProgramCore,
		vxi11runtime.VersionCore, vxi11runtime.ProcedureCreateLink, args))
	assert.NoError(err)
	assert.Equal(uint32(42), call.Xid)
	assert.Equal(vxi11runtime.ProgramCore, call.Program)
	assert.Equal(vxi11runtime.VersionCore, call.Version)
	assert.Equal(vxi11runtime.ProcedureCreateLink, call.Procedure)

	value, err := call.Args.Uint32()
	assert.NoError(err)
	assert.Equal(uint32(77), value)
}

func TestDecodeCallSkipsAuthBodies(t *testing.T) {
	assert := assert.New(t)

	e := &xdrEncoder{}
	e.Uint32(7)
	e.Uint32(vxi11runtime.MessageTypeCall)
	e.Uint32(vxi11runtime.RpcVersion)
	e.Uint32(vxi11runtime.ProgramPortmap)
	e.Uint32(vxi11runtime.VersionPortmap)
	e.Uint32(vxi11runtime.ProcedureGetPort)
	// AUTH_UNIX credential with an opaque body, empty verifier.
	e.Uint32(1).Uint32(8)
	e.buf = append(e.buf, []byte{1, 2, 3, 4, 5, 6, 7, 8}...)
	e.Uint32(0).Uint32(0)
	e.Uint32(0xCAFE)

	call, err := decodeCall(e.Bytes())
	assert.NoError(err)
	value, err := call.Args.Uint32()
	assert.NoError(err)
	assert.Equal(uint32(0xCAFE), value)
}

func TestDecodeCallRejectsReply(t *testing.T) {
	assert := assert.New(t)

	e := &xdrEncoder{}
	e.Uint32(1)
	e.Uint32(vxi11runtime.MessageTypeReply)

	_, err := decodeCall(e.Bytes())
	assert.Equal(vxi11runtime.ErrNotCall, err)
}

func TestDecodeCallRejectsRpcVersion(t *testing.T) {
	assert := assert.New(t)

	e := &xdrEncoder{}
	e.Uint32(1)
	e.Uint32(vxi11runtime.MessageTypeCall)
	e.Uint32(3)

	_, err := decodeCall(e.Bytes())
	assert.Equal(vxi11runtime.ErrRpcVersion, err)
}

func TestEncodeReply(t *testing.T) {
	assert := assert.New(t)

	reply := encodeReply(42, vxi11runtime.AcceptSuccess, []byte{0, 0, 0, 9})
	d := newXdrDecoder(reply)

	xid, _ := d.Uint32()
	assert.Equal(uint32(42), xid)
	messageType, _ := d.Uint32()
	assert.Equal(vxi11runtime.MessageTypeReply, messageType)
	replyStatus, _ := d.Uint32()
	assert.Equal(vxi11runtime.ReplyAccepted, replyStatus)
	// Verifier, AUTH_NONE.
	flavor, _ := d.Uint32()
	assert.Equal(uint32(0), flavor)
	length, _ := d.Uint32()
	assert.Equal(uint32(0), length)
	acceptStatus, _ := d.Uint32()
	assert.Equal(vxi11runtime.AcceptSuccess, acceptStatus)
	result, _ := d.Uint32()
	assert.Equal(uint32(9), result)
}

func TestRecordRoundtrip(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	message := []byte("device_write payload")
	assert.NoError(writeRecord(&buf, message))

	// Single final fragment with the length in the lower bits.
	head := buf.Bytes()[:4]
	assert.Equal(byte(0x80), head[0]&0x80)

	record, err := readRecord(&buf)
	assert.NoError(err)
	assert.Equal(message, record)
}

func TestReadRecordReassemblesFragments(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := &xdrEncoder{}
	e.Uint32(4)
	buf.Write(e.Bytes())
	buf.Write([]byte("frag"))
	e = &xdrEncoder{}
	e.Uint32(vxi11runtime.FragmentFlag | 4)
	buf.Write(e.Bytes())
	buf.Write([]byte("ment"))

	record, err := readRecord(&buf)
	assert.NoError(err)
	assert.Equal([]byte("fragment"), record)
}

func TestReadRecordTooLong(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := &xdrEncoder{}
	e.Uint32(vxi11runtime.FragmentFlag | uint32(vxi11runtime.MaxRecordLength+1))
	buf.Write(e.Bytes())

	_, err := readRecord(&buf)
	assert.Equal(vxi11runtime.ErrRecordTooLong, err)
}
