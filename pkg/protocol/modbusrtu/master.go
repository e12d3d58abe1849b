package modbusrtu

import (
	"context"
	"time"

	"go.bug.st/serial"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	modbusrturuntime "ridengateway/pkg/protocol/modbusrtu/runtime"
	"ridengateway/pkg/psu"
	"ridengateway/pkg/utils/binutil"
	"ridengateway/pkg/utils/crcutil"
)

type MasterOptions struct {
	Port         string
	BaudRate     int
	SlaveAddress uint8
	ReplyTimeout time.Duration
	BootWait     time.Duration
}

// Master drives the power supply over the half-duplex serial bus.
// The single-client pool serializes transactions, so at most one request
// is in flight on the wire.
type Master struct {
	options      MasterOptions
	clients      *SerialClients
	connected    *atomic.Bool
	model        psu.Model
	scale        psu.Scale
	serialNumber uint32
	firmware     uint16
}

func NewMaster(options MasterOptions) *Master {
	if options.SlaveAddress == 0 {
		options.SlaveAddress = modbusrturuntime.DefaultSlaveAddress
	}
	if options.ReplyTimeout == 0 {
		options.ReplyTimeout = modbusrturuntime.DefaultReplyTimeout
	}
	return &Master{
		options:   options,
		connected: atomic.NewBool(false),
	}
}

// Connect opens the serial port and identifies the power supply. The
// device needs a few seconds after power-on before it answers, so the id
// read is retried until BootWait has elapsed.
func (m *Master) Connect(ctx context.Context) error {
	clients, err := newSerialClients(1, func() (*SerialClient, error) {
		mode := &serial.Mode{
			BaudRate: m.options.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(m.options.Port, mode)
		if err != nil {
			klog.ErrorS(err, "Failed to open serial port", "port", m.options.Port)
			return nil, err
		}
		return &SerialClient{
			Timeout:   m.options.ReplyTimeout,
			Port:      port,
			IdleDelay: modbusrturuntime.InterFrameDelay(m.options.BaudRate),
		}, nil
	})
	if err != nil {
		return err
	}
	m.clients = clients

	var id uint16
	bootDeadline := time.Now().Add(m.options.BootWait)
	for {
		values, err := m.readHolding(ctx, psu.RegID, 1)
		if err == nil {
			id = values[0]
			break
		}
		if time.Now().After(bootDeadline) {
			klog.ErrorS(err, "Failed reading power supply id")
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	model, err := psu.DecodeModel(id)
	if err != nil {
		klog.ErrorS(err, "Failed decoding power supply id", "id", id)
		return err
	}
	m.model = model
	m.scale = model.Scale
	if model.CurrentScaleFromRange {
		values, err := m.readHolding(ctx, psu.RegCurrentRange, 1)
		if err != nil {
			return err
		}
		m.scale.Current = psu.CurrentScaleForRange(values[0])
	}

	serialCells, err := m.readHolding(ctx, psu.RegSerialNoHigh, 2)
	if err != nil {
		return err
	}
	m.serialNumber = uint32(serialCells[0])<<16 + uint32(serialCells[1])
	firmwareCells, err := m.readHolding(ctx, psu.RegFirmware, 1)
	if err != nil {
		return err
	}
	m.firmware = firmwareCells[0]

	m.connected.Store(true)
	klog.V(1).InfoS("Power supply connected",
		"model", model.Type, "serialNumber", m.serialNumber, "firmware", m.firmware)
	return nil
}

func (m *Master) IsConnected() bool {
	return m.connected.Load()
}

func (m *Master) Model() psu.Model       { return m.model }
func (m *Master) Scale() psu.Scale       { return m.scale }
func (m *Master) SerialNumber() uint32   { return m.serialNumber }
func (m *Master) Firmware() uint16       { return m.firmware }

func (m *Master) Destroy(ctx context.Context) {
	m.connected.Store(false)
	if m.clients != nil {
		m.clients.Destroy(ctx)
	}
}

// ReadHolding reads count registers starting at reg.
func (m *Master) ReadHolding(ctx context.Context, reg psu.Reg, count uint16) ([]uint16, error) {
	if !m.connected.Load() {
		return nil, modbusrturuntime.ErrNotConnected
	}
	return m.readHolding(ctx, reg, count)
}

// WriteHolding writes one register.
func (m *Master) WriteHolding(ctx context.Context, reg psu.Reg, value uint16) error {
	if !m.connected.Load() {
		return modbusrturuntime.ErrNotConnected
	}
	return m.writeHolding(ctx, reg, value)
}

// WriteHoldingMany writes consecutive registers starting at reg.
func (m *Master) WriteHoldingMany(ctx context.Context, reg psu.Reg, values []uint16) error {
	if !m.connected.Load() {
		return modbusrturuntime.ErrNotConnected
	}
	return m.writeHoldingMany(ctx, reg, values)
}

// Forward sends an opaque PDU to the given slave and returns the reply
// PDU. The TCP bridge uses this as its passthrough seam; framing and CRC
// stay inside the master.
func (m *Master) Forward(ctx context.Context, slaveID uint8, pdu []byte) ([]byte, error) {
	if !m.connected.Load() {
		return nil, modbusrturuntime.ErrNotConnected
	}
	frame := make([]byte, 0, len(pdu)+3)
	frame = append(frame, slaveID)
	frame = append(frame, pdu...)
	frame = appendCrc(frame)

	reply, err := m.exchange(ctx, frame)
	if err != nil {
		return nil, err
	}
	if reply[0] != slaveID {
		return nil, modbusrturuntime.ErrSlaveMismatch
	}
	return reply[1 : len(reply)-2], nil
}

func (m *Master) readHolding(ctx context.Context, reg psu.Reg, count uint16) ([]uint16, error) {
	request := make([]byte, 6)
	request[0] = m.options.SlaveAddress
	request[1] = modbusrturuntime.FunctionReadHolding
	binutil.WriteUint16(request[2:], uint16(reg))
	binutil.WriteUint16(request[4:], count)
	request = appendCrc(request)

	reply, err := m.exchange(ctx, request)
	if err != nil {
		return nil, err
	}
	if err := m.validateReply(reply, modbusrturuntime.FunctionReadHolding); err != nil {
		return nil, err
	}
	if len(reply) < 5 || int(reply[2]) != int(count)*2 || len(reply) < int(reply[2])+5 {
		return nil, modbusrturuntime.ErrReplyTruncated
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = binutil.ParseUint16BigEndian(reply[3+2*i:])
	}
	return values, nil
}

func (m *Master) writeHolding(ctx context.Context, reg psu.Reg, value uint16) error {
	request := make([]byte, 6)
	request[0] = m.options.SlaveAddress
	request[1] = modbusrturuntime.FunctionWriteSingle
	binutil.WriteUint16(request[2:], uint16(reg))
	binutil.WriteUint16(request[4:], value)
	request = appendCrc(request)

	reply, err := m.exchange(ctx, request)
	if err != nil {
		return err
	}
	return m.validateReply(reply, modbusrturuntime.FunctionWriteSingle)
}

func (m *Master) writeHoldingMany(ctx context.Context, reg psu.Reg, values []uint16) error {
	request := make([]byte, 7+2*len(values))
	request[0] = m.options.SlaveAddress
	request[1] = modbusrturuntime.FunctionWriteMultiple
	binutil.WriteUint16(request[2:], uint16(reg))
	binutil.WriteUint16(request[4:], uint16(len(values)))
	request[6] = byte(2 * len(values))
	for i, value := range values {
		binutil.WriteUint16(request[7+2*i:], value)
	}
	request = appendCrc(request)

	reply, err := m.exchange(ctx, request)
	if err != nil {
		return err
	}
	return m.validateReply(reply, modbusrturuntime.FunctionWriteMultiple)
}

func (m *Master) exchange(ctx context.Context, request []byte) ([]byte, error) {
	client, err := m.clients.getClient(ctx)
	if err != nil {
		return nil, err
	}
	defer m.clients.releaseClient(client)

	reply, err := client.AskFrame(request)
	if err != nil {
		return nil, err
	}
	if len(reply) < 5 {
		return nil, modbusrturuntime.ErrReplyTruncated
	}
	sum := crcutil.CheckCrc16sum(reply[:len(reply)-2])
	crc := binutil.ParseUint16BigEndian(reply[len(reply)-2:])
	if sum != crc {
		klog.V(2).InfoS("Failed to check CRC16", "reply", reply)
		return nil, modbusrturuntime.ErrCRC16Error
	}
	return reply, nil
}

func (m *Master) validateReply(reply []byte, functionCode uint8) error {
	if reply[0] != m.options.SlaveAddress {
		return modbusrturuntime.ErrSlaveMismatch
	}
	if reply[1]&modbusrturuntime.ExceptionFlag != 0 {
		klog.V(2).InfoS("Power supply returned exception",
			"functionCode", functionCode, "exceptionCode", reply[2])
		return modbusrturuntime.ErrExceptionReply
	}
	return nil
}

func appendCrc(frame []byte) []byte {
	crc16 := make([]byte, 2)
	binutil.WriteUint16(crc16, crcutil.CheckCrc16sum(frame))
	return append(frame, crc16...)
}
