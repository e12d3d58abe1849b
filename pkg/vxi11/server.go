package vxi11

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"ridengateway/pkg/scpi"
	vxi11runtime "ridengateway/pkg/vxi11/runtime"
)

type CoreOptions struct {
	PortStart uint32
	PortEnd   uint32
}

// Core is the VXI-11 core channel. It carries one link at a time and
// moves to the next port of its interval whenever a link is torn down,
// so a stale client cannot camp on the channel.
type Core struct {
	options CoreOptions
	engine  *scpi.Engine
	arbiter *scpi.Arbiter
	ports   *portCycle

	mu         sync.Mutex
	listener   net.Listener
	conn       net.Conn
	linkActive bool
	pending    []byte
}

func NewCore(options CoreOptions, engine *scpi.Engine, arbiter *scpi.Arbiter) *Core {
	if options.PortStart == 0 {
		options.PortStart = vxi11runtime.DefaultPortStart
		options.PortEnd = vxi11runtime.DefaultPortEnd
	}
	if options.PortEnd < options.PortStart {
		options.PortEnd = options.PortStart
	}
	return &Core{
		options: options,
		engine:  engine,
		arbiter: arbiter,
		ports:   newPortCycle(options.PortStart, options.PortEnd),
	}
}

// CorePort reports the port the channel currently listens on.
func (c *Core) CorePort() uint32 {
	return c.ports.Current()
}

// FixedPort reports whether the channel stays on one port, which makes
// it safe to advertise over discovery.
func (c *Core) FixedPort() bool {
	return c.ports.Fixed()
}

func (c *Core) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linkActive
}

// Serve starts the channel and returns a shutdown closure.
func (c *Core) Serve(ctx context.Context) (func(), error) {
	listener, err := c.listen(c.ports.Current())
	if err != nil {
		return nil, err
	}
	serveCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.listener = listener
	c.mu.Unlock()

	go c.run(serveCtx)
	klog.V(1).InfoS("Vxi11 core channel listening", "port", c.ports.Current())

	return func() {
		cancel()
		c.mu.Lock()
		if c.listener != nil {
			c.listener.Close()
		}
		c.mu.Unlock()
	}, nil
}

func (c *Core) listen(port uint32) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", port))
}

// run accepts one connection at a time. Every link end rotates the
// channel to the next port of the interval, whether the client sent
// DESTROY_LINK or just dropped the connection.
func (c *Core) run(ctx context.Context) {
	for {
		c.mu.Lock()
		listener := c.listener
		c.mu.Unlock()
		if listener == nil {
			return
		}
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				klog.V(2).InfoS("Vxi11 accept failed", "error", err)
				return
			}
		}
		c.serveLink(ctx, conn)
		if !c.ports.Fixed() {
			if err := c.rotate(ctx, listener); err != nil {
				klog.ErrorS(err, "Vxi11 port rotation failed")
				return
			}
		}
	}
}

func (c *Core) rotate(ctx context.Context, old net.Listener) error {
	old.Close()
	port := c.ports.Advance()
	listener, err := c.listen(port)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.listener = listener
	c.mu.Unlock()
	klog.V(2).InfoS("Vxi11 core channel moved", "port", port)
	return nil
}

// serveLink drives one client connection until its link is destroyed
// or the peer disappears. A dropped connection is an implicit destroy.
func (c *Core) serveLink(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	owner := "vxi:" + conn.RemoteAddr().String()
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.releaseLink(owner, conn)
	klog.V(3).InfoS("Vxi11 client connected", "remote", conn.RemoteAddr())

	for {
		message, err := readRecord(conn)
		if err != nil {
			klog.V(3).InfoS("Vxi11 client gone", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		call, err := decodeCall(message)
		if err != nil {
			klog.V(3).InfoS("Vxi11 call rejected", "error", err)
			return
		}
		reply, done := c.dispatch(ctx, call, owner)
		if reply != nil {
			if err := writeRecord(conn, reply); err != nil {
				return
			}
		}
		if done {
			return
		}
	}
}

func (c *Core) dispatch(ctx context.Context, call *rpcCall, owner string) ([]byte, bool) {
	if call.Program != vxi11runtime.ProgramCore {
		return encodeReply(call.Xid, vxi11runtime.AcceptProgUnavailable, nil), false
	}
	if call.Version != vxi11runtime.VersionCore {
		mismatch := (&xdrEncoder{}).
			Uint32(vxi11runtime.VersionCore).
			Uint32(vxi11runtime.VersionCore).
			Bytes()
		return encodeReply(call.Xid, vxi11runtime.AcceptProgMismatch, mismatch), false
	}
	switch call.Procedure {
	case vxi11runtime.ProcedureCreateLink:
		return c.createLink(call, owner), false
	case vxi11runtime.ProcedureDeviceWrite:
		return c.deviceWrite(ctx, call), false
	case vxi11runtime.ProcedureDeviceRead:
		return c.deviceRead(call), false
	case vxi11runtime.ProcedureDestroyLink:
		return c.destroyLink(call), true
	default:
		return encodeReply(call.Xid, vxi11runtime.AcceptProcUnavailable, nil), false
	}
}

func (c *Core) createLink(call *rpcCall, owner string) []byte {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	evict := func() {
		if conn != nil {
			conn.Close()
		}
	}
	if err := c.arbiter.Preempt(owner, evict, false); err != nil {
		klog.V(2).InfoS("Vxi11 link refused, instrument busy", "owner", owner)
		result := (&xdrEncoder{}).
			Uint32(vxi11runtime.ErrorOutOfResources).
			Uint32(0).
			Uint32(0).
			Uint32(0).
			Bytes()
		return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, result)
	}
	c.mu.Lock()
	c.linkActive = true
	c.pending = nil
	c.mu.Unlock()
	result := (&xdrEncoder{}).
		Uint32(vxi11runtime.ErrorNoError).
		Uint32(0).
		Uint32(0).
		Uint32(vxi11runtime.MaxReceiveSize).
		Bytes()
	return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, result)
}

func (c *Core) deviceWrite(ctx context.Context, call *rpcCall) []byte {
	for i := 0; i < 4; i++ {
		if _, err := call.Args.Uint32(); err != nil {
			return encodeReply(call.Xid, vxi11runtime.AcceptGarbageArgs, nil)
		}
	}
	data, err := call.Args.Opaque()
	if err != nil {
		return encodeReply(call.Xid, vxi11runtime.AcceptGarbageArgs, nil)
	}
	input := strings.TrimRight(string(data), " \t\r\n")
	reply := c.engine.Execute(ctx, input)
	c.mu.Lock()
	if reply != "" {
		c.pending = []byte(reply + "\n")
	}
	c.mu.Unlock()
	result := (&xdrEncoder{}).
		Uint32(vxi11runtime.ErrorNoError).
		Uint32(uint32(len(data))).
		Bytes()
	return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, result)
}

func (c *Core) deviceRead(call *rpcCall) []byte {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	result := (&xdrEncoder{}).
		Uint32(vxi11runtime.ErrorNoError).
		Uint32(vxi11runtime.ReasonEnd).
		Opaque(pending).
		Bytes()
	return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, result)
}

func (c *Core) destroyLink(call *rpcCall) []byte {
	result := (&xdrEncoder{}).Uint32(vxi11runtime.ErrorNoError).Bytes()
	return encodeReply(call.Xid, vxi11runtime.AcceptSuccess, result)
}

func (c *Core) releaseLink(owner string, conn net.Conn) {
	c.mu.Lock()
	c.linkActive = false
	c.pending = nil
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	c.arbiter.Release(owner)
}

// Disconnect tears down the live link if its address matches.
func (c *Core) Disconnect(ip string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return vxi11runtime.ErrClientNotFound
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil || host != ip {
		return vxi11runtime.ErrClientNotFound
	}
	klog.V(2).InfoS("Disconnecting vxi11 client", "ip", ip)
	return conn.Close()
}

// ConnectedClient reports the attached peer address, empty when idle.
func (c *Core) ConnectedClient() string {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
