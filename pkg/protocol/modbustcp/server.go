package modbustcp

import (
	"context"
	"fmt"
	"net"
	"sync"

	"k8s.io/klog/v2"

	modbusrturuntime "ridengateway/pkg/protocol/modbusrtu/runtime"
	modbustcpruntime "ridengateway/pkg/protocol/modbustcp/runtime"
)

// Forwarder is the raw passthrough seam into the serial master. The
// reply PDU corresponds to exactly one request, so a pending TCP
// transaction holds its correlation state for the duration of the call.
type Forwarder interface {
	Forward(ctx context.Context, slaveID uint8, pdu []byte) ([]byte, error)
	IsConnected() bool
}

type BridgeOptions struct {
	Port       int
	MaxClients int
}

// Bridge is the Modbus TCP server forwarding opaque ADUs to the serial
// bus and repackaging the replies under the originating transaction id.
type Bridge struct {
	options   BridgeOptions
	forwarder Forwarder

	mu       sync.Mutex
	listener net.Listener
	clients  map[string]net.Conn
	cancel   context.CancelFunc
}

func NewBridge(options BridgeOptions, forwarder Forwarder) *Bridge {
	if options.Port == 0 {
		options.Port = modbustcpruntime.DefaultPort
	}
	if options.MaxClients == 0 {
		options.MaxClients = modbustcpruntime.DefaultMaxClients
	}
	return &Bridge{
		options:   options,
		forwarder: forwarder,
		clients:   make(map[string]net.Conn),
	}
}

func (b *Bridge) Port() int {
	return b.options.Port
}

// Serve starts the accept loop and returns a shutdown closure.
func (b *Bridge) Serve(ctx context.Context) (func(), error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", b.options.Port))
	if err != nil {
		return nil, err
	}
	serveCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.listener = listener
	b.cancel = cancel
	b.mu.Unlock()

	go b.acceptLoop(serveCtx, listener)
	klog.V(1).InfoS("Modbus tcp bridge listening", "port", b.options.Port)

	return func() {
		cancel()
		listener.Close()
		b.mu.Lock()
		for _, conn := range b.clients {
			conn.Close()
		}
		b.clients = make(map[string]net.Conn)
		b.mu.Unlock()
	}, nil
}

func (b *Bridge) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				klog.V(2).InfoS("Modbus tcp accept failed", "error", err)
				return
			}
		}
		if !b.addClient(conn) {
			klog.V(2).InfoS("Modbus tcp client limit reached, refusing",
				"remote", conn.RemoteAddr())
			conn.Close()
			continue
		}
		go b.serveConn(ctx, conn)
	}
}

func (b *Bridge) addClient(conn net.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clients) >= b.options.MaxClients {
		return false
	}
	b.clients[remoteIP(conn)] = conn
	return true
}

func (b *Bridge) removeClient(conn net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ip := remoteIP(conn)
	if current, ok := b.clients[ip]; ok && current == conn {
		delete(b.clients, ip)
	}
}

func (b *Bridge) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer b.removeClient(conn)
	klog.V(3).InfoS("Modbus tcp client connected", "remote", conn.RemoteAddr())

	for {
		header, pdu, err := ReadADU(conn)
		if err != nil {
			klog.V(3).InfoS("Modbus tcp client gone", "remote", conn.RemoteAddr(), "error", err)
			return
		}

		reply, err := b.forwarder.Forward(ctx, header.UnitID, pdu)
		if err != nil {
			klog.V(2).InfoS("Serial forward failed, synthesizing exception",
				"transactionID", header.TransactionID, "error", err)
			reply = ExceptionPDU(pdu[0], modbusrturuntime.ExceptionDeviceFailedToRespond)
		}
		if err := WriteADU(conn, header.TransactionID, header.UnitID, reply); err != nil {
			klog.V(2).InfoS("Failed to write modbus tcp reply", "error", err)
			return
		}
	}
}

// ConnectedClients lists the peer addresses currently attached.
func (b *Bridge) ConnectedClients() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ips := make([]string, 0, len(b.clients))
	for ip := range b.clients {
		ips = append(ips, ip)
	}
	return ips
}

// Disconnect drops the client with the given peer address.
func (b *Bridge) Disconnect(ip string) error {
	b.mu.Lock()
	conn, ok := b.clients[ip]
	if ok {
		delete(b.clients, ip)
	}
	b.mu.Unlock()
	if !ok {
		return modbustcpruntime.ErrClientNotFound
	}
	klog.V(2).InfoS("Disconnecting modbus tcp client", "ip", ip)
	return conn.Close()
}

func remoteIP(conn net.Conn) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
