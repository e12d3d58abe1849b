package runtime

import "errors"

var ErrMessageTruncated = errors.New("Rpc message truncated\n")
var ErrRecordTooLong = errors.New("Rpc record exceeds limit\n")
var ErrNotCall = errors.New("Rpc message is not a call\n")
var ErrRpcVersion = errors.New("Rpc version is not 2\n")
var ErrClientNotFound = errors.New("No vxi11 client with that address\n")

const (
	// PortmapPort is the well known rpcbind port.
	PortmapPort = 111

	// DefaultPortStart and DefaultPortEnd bound the closed interval the
	// core channel cycles through. A single-port interval keeps the
	// channel on a stable, advertisable port.
	DefaultPortStart uint32 = 9010
	DefaultPortEnd   uint32 = 9010

	RpcVersion uint32 = 2

	ProgramPortmap uint32 = 100000
	VersionPortmap uint32 = 2
	ProcedureNull  uint32 = 0

	ProcedureGetPort uint32 = 3

	ProgramCore uint32 = 0x0607AF
	VersionCore uint32 = 1

	ProcedureCreateLink  uint32 = 10
	ProcedureDeviceWrite uint32 = 11
	ProcedureDeviceRead  uint32 = 12
	ProcedureDestroyLink uint32 = 23

	MessageTypeCall  uint32 = 0
	MessageTypeReply uint32 = 1

	ReplyAccepted uint32 = 0

	AcceptSuccess         uint32 = 0
	AcceptProgUnavailable uint32 = 1
	AcceptProgMismatch    uint32 = 2
	AcceptProcUnavailable uint32 = 3
	AcceptGarbageArgs     uint32 = 4

	ErrorNoError        uint32 = 0
	ErrorOutOfResources uint32 = 9

	// ReasonEnd marks a device read that delivered the whole response.
	ReasonEnd uint32 = 4

	// MaxReceiveSize is advertised on link creation. It leaves room for
	// the terminator inside one read buffer.
	MaxReceiveSize uint32 = 252

	// FragmentFlag marks the last fragment in a TCP record mark.
	FragmentFlag uint32 = 0x80000000

	// MaxRecordLength bounds one assembled call.
	MaxRecordLength = 8192
)
