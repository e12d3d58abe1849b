package vxi11

import (
	"context"
	"fmt"
	"net"
	"sync"

	"k8s.io/klog/v2"

	vxi11runtime "ridengateway/pkg/vxi11/runtime"
)

// PortReporter tells the portmapper where the core channel currently
// listens and whether it is occupied by a link.
type PortReporter interface {
	CorePort() uint32
	Busy() bool
}

type PortmapOptions struct {
	Port int
}

// Portmap is a minimal rpcbind answering GETPORT for the core channel.
// It serves both UDP and TCP on the well known port.
type Portmap struct {
	options  PortmapOptions
	reporter PortReporter

	mu       sync.Mutex
	listener net.Listener
	packet   net.PacketConn
}

func NewPortmap(options PortmapOptions, reporter PortReporter) *Portmap {
	if options.Port == 0 {
		options.Port = vxi11runtime.PortmapPort
	}
	return &Portmap{options: options, reporter: reporter}
}

// Serve starts the UDP and TCP responders and returns a shutdown
// closure.
func (p *Portmap) Serve(ctx context.Context) (func(), error) {
	address := fmt.Sprintf(":%d", p.options.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	packet, err := net.ListenPacket("udp", address)
	if err != nil {
		listener.Close()
		return nil, err
	}
	p.mu.Lock()
	p.listener = listener
	p.packet = packet
	p.mu.Unlock()

	go p.acceptLoop(ctx, listener)
	go p.packetLoop(ctx, packet)
	klog.V(1).InfoS("Portmap listening", "port", p.options.Port)

	return func() {
		listener.Close()
		packet.Close()
	}, nil
}

func (p *Portmap) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				klog.V(2).InfoS("Portmap accept failed", "error", err)
			}
			return
		}
		go p.serveConn(conn)
	}
}

func (p *Portmap) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		message, err := readRecord(conn)
		if err != nil {
			return
		}
		reply, ok := p.handle(message)
		if !ok {
			return
		}
		if err := writeRecord(conn, reply); err != nil {
			return
		}
	}
}

func (p *Portmap) packetLoop(ctx context.Context, packet net.PacketConn) {
	buf := make([]byte, vxi11runtime.MaxRecordLength)
	for {
		n, addr, err := packet.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				klog.V(2).InfoS("Portmap udp read failed", "error", err)
			}
			return
		}
		message := make([]byte, n)
		copy(message, buf[:n])
		if reply, ok := p.handle(message); ok {
			if _, err := packet.WriteTo(reply, addr); err != nil {
				klog.V(2).InfoS("Portmap udp write failed", "error", err)
			}
		}
	}
}

// handle answers one portmap call. Requests are dropped while a link
// occupies the core channel so clients retry once it frees up.
func (p *Portmap) handle(message []byte) ([]byte, bool) {
	call, err := decodeCall(message)
	if err != nil {
		klog.V(3).InfoS("Portmap call rejected", "error", err)
		return nil, false
	}
	if call.Program != vxi11runtime.ProgramPortmap {
		return encodeReply(call.Xid, vxi11runtime.AcceptProgUnavailable, nil), true
	}
	if call.Version != vxi11runtime.VersionPortmap {
		mismatch := (&xdrEncoder{}).
			Uint32(vxi11runtime.VersionPortmap).
			Uint32(vxi11runtime.VersionPortmap).
			Bytes()
		return encodeReply(call.Xid, vxi11runtime.AcceptProgMismatch, mismatch), true
	}
	switch call.Procedure {
	case vxi11runtime.ProcedureNull:
		return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, nil), true
	case vxi11runtime.ProcedureGetPort:
		return p.getPort(call)
	default:
		return encodeReply(call.Xid, vxi11runtime.AcceptProcUnavailable, nil), true
	}
}

func (p *Portmap) getPort(call *rpcCall) ([]byte, bool) {
	program, err := call.Args.Uint32()
	if err != nil {
		return encodeReply(call.Xid, vxi11runtime.AcceptGarbageArgs, nil), true
	}
	if p.reporter.Busy() {
		klog.V(3).InfoS("Portmap ignoring request, core channel busy")
		return nil, false
	}
	var port uint32
	if program == vxi11runtime.ProgramCore {
		port = p.reporter.CorePort()
	}
	if port == 0 {
		return encodeReply(call.Xid, vxi11runtime.AcceptGarbageArgs, nil), true
	}
	result := (&xdrEncoder{}).Uint32(port).Bytes()
	return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, result), true
}
