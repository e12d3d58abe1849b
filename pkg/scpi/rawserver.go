package scpi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"k8s.io/klog/v2"

	scpiruntime "ridengateway/pkg/scpi/runtime"
)

type RawServerOptions struct {
	Port int
}

// RawServer speaks newline delimited SCPI on a plain TCP socket. One
// client at a time holds the instrument.
type RawServer struct {
	options RawServerOptions
	engine  *Engine
	arbiter *Arbiter

	mu       sync.Mutex
	listener net.Listener
	client   net.Conn
}

func NewRawServer(options RawServerOptions, engine *Engine, arbiter *Arbiter) *RawServer {
	if options.Port == 0 {
		options.Port = scpiruntime.DefaultPort
	}
	return &RawServer{
		options: options,
		engine:  engine,
		arbiter: arbiter,
	}
}

func (s *RawServer) Port() int {
	return s.options.Port
}

// Serve starts the accept loop and returns a shutdown closure.
func (s *RawServer) Serve(ctx context.Context) (func(), error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.options.Port))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go s.acceptLoop(ctx, listener)
	klog.V(1).InfoS("Scpi raw server listening", "port", s.options.Port)

	return func() {
		listener.Close()
		s.mu.Lock()
		if s.client != nil {
			s.client.Close()
		}
		s.mu.Unlock()
	}, nil
}

func (s *RawServer) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				klog.V(2).InfoS("Scpi raw accept failed", "error", err)
			}
			return
		}
		if !s.adopt(conn) {
			klog.V(2).InfoS("Scpi raw client refused, instrument busy",
				"remote", conn.RemoteAddr())
			conn.Close()
			continue
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *RawServer) adopt(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return false
	}
	if err := s.arbiter.Claim(sessionName(conn), func() { conn.Close() }, true); err != nil {
		return false
	}
	s.client = conn
	return true
}

// Disconnect drops the attached client if its address matches.
func (s *RawServer) Disconnect(ip string) error {
	s.mu.Lock()
	conn := s.client
	s.mu.Unlock()
	if conn == nil {
		return scpiruntime.ErrClientNotFound
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil || host != ip {
		return scpiruntime.ErrClientNotFound
	}
	klog.V(2).InfoS("Disconnecting scpi raw client", "ip", ip)
	return conn.Close()
}

// ConnectedClient reports the attached peer address, empty when idle.
func (s *RawServer) ConnectedClient() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(s.client.RemoteAddr().String())
	if err != nil {
		return s.client.RemoteAddr().String()
	}
	return host
}

func (s *RawServer) drop(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == conn {
		s.client = nil
	}
	s.arbiter.Release(sessionName(conn))
}

func (s *RawServer) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.drop(conn)
	klog.V(3).InfoS("Scpi raw client connected", "remote", conn.RemoteAddr())

	reader := bufio.NewReaderSize(conn, scpiruntime.InputBufferLength)
	writer := bufio.NewWriterSize(conn, scpiruntime.WriteBufferLength)
	line := make([]byte, 0, scpiruntime.InputBufferLength)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			klog.V(3).InfoS("Scpi raw client gone", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		if b != '\n' {
			if len(line) >= scpiruntime.InputBufferLength {
				klog.V(2).InfoS("Scpi raw input overflow, dropping client",
					"remote", conn.RemoteAddr())
				return
			}
			line = append(line, b)
			continue
		}
		input := string(trimCR(line))
		line = line[:0]
		reply := s.engine.Execute(ctx, input)
		if reply == "" {
			continue
		}
		if _, err := writer.WriteString(reply + "\n"); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}

func sessionName(conn net.Conn) string {
	return "raw:" + conn.RemoteAddr().String()
}
