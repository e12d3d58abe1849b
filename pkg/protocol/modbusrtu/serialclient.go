package modbusrtu

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.bug.st/serial"
	"k8s.io/klog/v2"

	modbusrturuntime "ridengateway/pkg/protocol/modbusrtu/runtime"
)

type SerialClients struct {
	newSerialClient func() (*SerialClient, error)
	Clients         *list.List
	Max             int
	Idle            int
	Mux             *sync.Mutex
	ConnRequests    map[uint64]chan *SerialClient
	NextRequest     uint64
}

func newSerialClients(max int, dial func() (*SerialClient, error)) (*SerialClients, error) {
	scs := &SerialClients{
		newSerialClient: dial,
		Clients:         list.New(),
		Max:             max,
		Mux:             &sync.Mutex{},
		ConnRequests:    make(map[uint64]chan *SerialClient),
	}
	for i := 0; i < max; i++ {
		client, err := dial()
		if err != nil {
			scs.Destroy(context.Background())
			return nil, err
		}
		scs.Clients.PushBack(client)
		scs.Idle++
	}
	return scs, nil
}

func (scs *SerialClients) getClient(ctx context.Context) (*SerialClient, error) {
	select {
	default:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	scs.Mux.Lock()
	if scs.Idle > 0 {
		scs.Idle = scs.Idle - 1
		front := scs.Clients.Front()
		client := front.Value.(*SerialClient)
		scs.Clients.Remove(front)
		scs.Mux.Unlock()
		return client, nil
	}

	cCh := make(chan *SerialClient, 1)
	key := scs.nextRequestKey()
	scs.ConnRequests[key] = cCh
	scs.Mux.Unlock()

	select {
	case <-ctx.Done():
		scs.Mux.Lock()
		delete(scs.ConnRequests, key)
		scs.Mux.Unlock()
		select {
		default:
		case c, ok := <-cCh:
			if ok && c.Port != nil {
				scs.Clients.PushBack(c)
			}
		}
		return nil, ctx.Err()
	case m, ok := <-cCh:
		if !ok {
			return nil, modbusrturuntime.ErrSerialPortClosed
		}
		return m, nil
	}
}

func (scs *SerialClients) releaseClient(client *SerialClient) {
	scs.Mux.Lock()
	defer scs.Mux.Unlock()
	if scs.Idle == 0 && len(scs.ConnRequests) > 0 {
		var cCh chan *SerialClient
		var key uint64
		for key, cCh = range scs.ConnRequests {
			break
		}
		delete(scs.ConnRequests, key)
		cCh <- client
	} else {
		scs.Clients.PushBack(client)
		scs.Idle = scs.Idle + 1
	}
}

func (scs *SerialClients) Destroy(ctx context.Context) {
	scs.Mux.Lock()
	defer scs.Mux.Unlock()
	for scs.Clients.Len() > 0 {
		e := scs.Clients.Front()
		c := e.Value.(*SerialClient)
		c.Port.Close()
		scs.Clients.Remove(e)
	}

	for _, clientRequest := range scs.ConnRequests {
		close(clientRequest)
	}
}

func (scs *SerialClients) nextRequestKey() uint64 {
	next := scs.NextRequest
	scs.NextRequest++
	return next
}

type SerialClient struct {
	Timeout      time.Duration
	Port         serial.Port
	IdleDelay    time.Duration
	lastExchange time.Time
}

// AskFrame writes one request frame and collects the reply frame.
// The reply length is derived from the function code once the first three
// bytes are in; a read that returns no data inside the per-read timeout
// closes the frame for function codes with no known fixed length.
func (sc *SerialClient) AskFrame(request []byte) ([]byte, error) {
	if idle := time.Since(sc.lastExchange); idle < sc.IdleDelay {
		time.Sleep(sc.IdleDelay - idle)
	}
	if err := sc.Port.ResetInputBuffer(); err != nil {
		klog.V(2).InfoS("Failed to reset serial input buffer", "error", err)
	}

	rql, err := sc.Port.Write(request)
	if err != nil {
		klog.V(2).InfoS("Failed to write bytes to serial port", "error", err)
		return nil, modbusrturuntime.ErrBadConn
	}
	klog.V(5).InfoS("Succeed to write bytes to serial port", "bytes", request, "length", rql)

	deadline := time.Now().Add(sc.Timeout)
	response := make([]byte, 0, modbusrturuntime.MaxFrameSize)
	buf := make([]byte, modbusrturuntime.MaxFrameSize)
	expected := 0

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			sc.lastExchange = time.Now()
			return nil, modbusrturuntime.ErrReplyTimeout
		}
		if expected < 0 {
			// Unframed reply, wait at most four inter-frame gaps for more bytes.
			if gap := 4 * sc.IdleDelay; gap < remaining {
				remaining = gap
			}
		}
		if err := sc.Port.SetReadTimeout(remaining); err != nil {
			klog.V(2).InfoS("Failed to set serial read timeout", "error", err)
			return nil, err
		}
		n, err := sc.Port.Read(buf)
		if err != nil {
			klog.V(2).InfoS("Failed to read bytes from serial port", "error", err)
			sc.lastExchange = time.Now()
			return nil, err
		}
		if n == 0 {
			sc.lastExchange = time.Now()
			if expected < 0 && len(response) >= 5 {
				// Unknown function code, the quiet line closes the frame.
				return response, nil
			}
			if len(response) == 0 {
				return nil, modbusrturuntime.ErrReplyTimeout
			}
			return nil, modbusrturuntime.ErrReplyTruncated
		}
		response = append(response, buf[:n]...)

		if expected == 0 {
			expected = expectedFrameLength(response)
		}
		if expected > 0 && len(response) >= expected {
			sc.lastExchange = time.Now()
			return response[:expected], nil
		}
	}
}

// expectedFrameLength returns the full frame length once enough of the
// reply is in to decide, 0 if undecided, -1 for unframed function codes.
func expectedFrameLength(partial []byte) int {
	if len(partial) < 2 {
		return 0
	}
	functionCode := partial[1]
	if functionCode&modbusrturuntime.ExceptionFlag != 0 {
		return 5
	}
	switch functionCode {
	case modbusrturuntime.FunctionReadHolding, 0x01, 0x02, 0x04:
		if len(partial) < 3 {
			return 0
		}
		return int(partial[2]) + 5
	case modbusrturuntime.FunctionWriteSingle, modbusrturuntime.FunctionWriteMultiple, 0x05:
		return 8
	default:
		return -1
	}
}
