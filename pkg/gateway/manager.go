package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"k8s.io/klog/v2"

	"ridengateway/pkg/config"
	"ridengateway/pkg/protocol/modbusrtu"
	"ridengateway/pkg/protocol/modbustcp"
	"ridengateway/pkg/psu"
	"ridengateway/pkg/scpi"
	scpiruntime "ridengateway/pkg/scpi/runtime"
	"ridengateway/pkg/storage"
	"ridengateway/pkg/utils/randutil"
	"ridengateway/pkg/utils/uuidutil"
	"ridengateway/pkg/vxi11"
	vxi11runtime "ridengateway/pkg/vxi11/runtime"
)

type Option func(*Manager)

// Manager wires the serial master and the protocol front ends together
// and backs the HTTP control surface.
type Manager struct {
	gatewayMeta *GatewayMeta
	storage     storage.Storage
	master      *modbusrtu.Master
	bridge      *modbustcp.Bridge
	rawServer   *scpi.RawServer
	core        *vxi11.Core
	configStore *config.Store
	version     string
	telemetry   bool
	startedAt   time.Time
	rebootCh    chan struct{}
	stopCh      <-chan struct{}
}

func WithVersion(version string) Option {
	return func(m *Manager) { m.version = version }
}

func WithTelemetry(enabled bool) Option {
	return func(m *Manager) { m.telemetry = enabled }
}

func NewGatewayManager(
	store storage.Storage,
	master *modbusrtu.Master,
	bridge *modbustcp.Bridge,
	rawServer *scpi.RawServer,
	core *vxi11.Core,
	configStore *config.Store,
	stop <-chan struct{},
	opts ...Option,
) *Manager {
	m := &Manager{
		gatewayMeta: &GatewayMeta{},
		storage:     store,
		master:      master,
		bridge:      bridge,
		rawServer:   rawServer,
		core:        core,
		configStore: configStore,
		startedAt:   time.Now(),
		rebootCh:    make(chan struct{}, 1),
		stopCh:      stop,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init loads the persisted gateway identity, creating one on first boot.
func (m *Manager) Init() {
	gd, err := m.storage.Get(metaKey)
	if err != nil && os.IsNotExist(err) {
		m.gatewayMeta = &GatewayMeta{
			Name:    "ridengateway",
			ID:      uuidutil.UUID(),
			Version: strconv.FormatUint(randutil.Uint64n(), 10),
			ModTime: time.Now(),
		}
		klog.V(3).InfoS("Gateway information not exist,been created automatically",
			"gatewayId", m.gatewayMeta.ID)
		marshal, _ := json.Marshal(m.gatewayMeta)
		if err := m.storage.Write(metaKey, marshal); err != nil {
			klog.V(2).InfoS("Failed to create gateway information", "err", err)
		}
		return
	}
	if err != nil {
		klog.V(2).InfoS("Failed to load gateway information", "err", err)
		return
	}
	if err := json.Unmarshal(gd, m.gatewayMeta); err != nil {
		klog.V(2).InfoS("Failed to unmarshal gateway information", "err", err)
	}
}

func (m *Manager) GetGatewayMeta() (*GatewayMeta, error) {
	return m.gatewayMeta, nil
}

// Hostname derives the advertised instance name from the attached
// instrument, falling back to the stored gateway name.
func (m *Manager) Hostname() string {
	if m.master.IsConnected() {
		return psu.Hostname(m.master.Model().Type, m.master.SerialNumber())
	}
	return m.gatewayMeta.Name
}

// Connected reports whether the serial side is up.
func (m *Manager) Connected() bool {
	return m.master.IsConnected()
}

// Snapshot reads the full register file in one bulk transaction.
func (m *Manager) Snapshot(ctx context.Context) (psu.AllValues, error) {
	return m.master.GetAllValues(ctx)
}

// Status assembles the status page payload.
func (m *Manager) Status(ctx context.Context) *Status {
	hostUptime, err := m.HostUptime()
	if err != nil {
		klog.V(2).InfoS("Failed to read host uptime", "err", err)
	}
	status := &Status{
		Dongle: DongleInfo{
			Hostname:   m.Hostname(),
			ID:         m.gatewayMeta.ID,
			Version:    m.version,
			Uptime:     time.Since(m.startedAt).Round(time.Second).String(),
			HostUptime: hostUptime,
			Timezone:   m.configStore.TimezoneName(),
			BaudRate:   m.configStore.UartBaudRate(),
			Telemetry:  m.telemetry,
		},
		Psu:      m.psuInfo(),
		Network:  interfaces(),
		Services: m.services(),
		Clients:  m.ConnectedClients(),
	}
	return status
}

func (m *Manager) psuInfo() PsuInfo {
	if !m.master.IsConnected() {
		return PsuInfo{Connected: false}
	}
	return PsuInfo{
		Connected:    true,
		Model:        m.master.Model().Type,
		SerialNumber: fmt.Sprintf("%08d", m.master.SerialNumber()),
		Firmware:     psu.FirmwareString(m.master.Firmware()),
	}
}

func (m *Manager) services() []ServiceInfo {
	services := []ServiceInfo{
		{Name: "modbus-tcp", Port: m.bridge.Port()},
		{Name: "scpi-raw", Port: m.rawServer.Port()},
		{Name: "rpc-portmap", Port: vxi11runtime.PortmapPort},
		{Name: "vxi-11", Port: int(m.core.CorePort())},
	}
	return services
}

func interfaces() []InterfaceInfo {
	ifaces, err := net.Interfaces()
	if err != nil {
		klog.V(2).InfoS("Failed to enumerate interfaces", "err", err)
		return nil
	}
	infos := make([]InterfaceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		info := InterfaceInfo{Name: iface.Name}
		for _, addr := range addrs {
			info.Addresses = append(info.Addresses, addr.String())
		}
		infos = append(infos, info)
	}
	return infos
}

// ConnectedClients enumerates the peers attached to every transport.
func (m *Manager) ConnectedClients() []ClientEntry {
	entries := make([]ClientEntry, 0, 4)
	for _, ip := range m.bridge.ConnectedClients() {
		entries = append(entries, ClientEntry{
			ID: uuidutil.UUID(), Protocol: ProtocolModbusTcp, IP: ip,
		})
	}
	if ip := m.rawServer.ConnectedClient(); ip != "" {
		entries = append(entries, ClientEntry{
			ID: uuidutil.UUID(), Protocol: ProtocolScpi, IP: ip,
		})
	}
	if ip := m.core.ConnectedClient(); ip != "" {
		entries = append(entries, ClientEntry{
			ID: uuidutil.UUID(), Protocol: ProtocolVxi11, IP: ip,
		})
	}
	return entries
}

// DisconnectClient routes a forced disconnect to the transport that
// owns the protocol name.
func (m *Manager) DisconnectClient(protocol string, ip string) error {
	switch protocol {
	case ProtocolScpi:
		return m.rawServer.Disconnect(ip)
	case ProtocolModbusTcp:
		return m.bridge.Disconnect(ip)
	case ProtocolVxi11:
		return m.core.Disconnect(ip)
	default:
		return ErrUnknownProtocol
	}
}

// MeasureQps runs a fixed burst of voltage-set reads against the serial
// master and reports the sustained query rate.
func (m *Manager) MeasureQps(ctx context.Context) (float64, error) {
	start := time.Now()
	for i := 0; i < qpsProbeCount; i++ {
		if _, err := m.master.GetVoltageSet(ctx); err != nil {
			return 0, errors.Wrapf(err, "qps probe read %d", i)
		}
	}
	elapsed := time.Since(start)
	return float64(qpsProbeCount) / elapsed.Seconds(), nil
}

// StageFirmware stores an uploaded image for a later flash cycle.
func (m *Manager) StageFirmware(name string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFirmware
	}
	key := storage.Firmware + "/" + name
	if err := m.storage.Write(key, data); err != nil {
		return errors.Wrap(err, "stage firmware")
	}
	klog.V(2).InfoS("Staged firmware image", "name", name, "bytes", len(data))
	return nil
}

// RequestReboot optionally raises the portal flag and signals the
// process supervisor loop. The signal is sent at once, without waiting
// for the caller's HTTP response; the supervisor restarts only after
// its graceful HTTP server shutdown.
func (m *Manager) RequestReboot(portal bool) error {
	if portal {
		if err := m.configStore.SetPortalOnBoot(true); err != nil {
			return err
		}
	}
	select {
	case m.rebootCh <- struct{}{}:
	default:
	}
	return nil
}

// RebootRequests exposes the reboot signal for the supervisor.
func (m *Manager) RebootRequests() <-chan struct{} {
	return m.rebootCh
}

// Identification collects the fields of the LXI identification document.
func (m *Manager) Identification(hostAddress string) Identification {
	info := m.psuInfo()
	return Identification{
		Manufacturer:    scpiruntime.Manufacturer,
		Model:           info.Model,
		SerialNumber:    info.SerialNumber,
		Firmware:        info.Firmware,
		Hostname:        m.Hostname(),
		VisaInstrument:  fmt.Sprintf("TCPIP::%s::INSTR", hostAddress),
		VisaRawSocket:   fmt.Sprintf("TCPIP::%s::%d::SOCKET", hostAddress, m.rawServer.Port()),
		InterfaceDomain: m.configStore.TimezoneName(),
	}
}

func (m *Manager) getGatewayCpu() (interface{}, error) {
	percents, err := cpu.Percent(time.Second, true)
	if err != nil {
		return nil, err
	}
	infos := make([]string, 0, len(percents))
	for _, p := range percents {
		infos = append(infos, fmt.Sprintf("%.1f%%", p))
	}
	return infos, nil
}

func (m *Manager) getGatewayMem() (interface{}, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	return &MemUsageInfo{
		Total:       humanBytes(vm.Total),
		Used:        humanBytes(vm.Used),
		UsedPercent: fmt.Sprintf("%.1f%%", vm.UsedPercent),
	}, nil
}

func (m *Manager) getGatewayDisk() (interface{}, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}
	infos := make([]*DiskUsageInfo, 0, len(partitions))
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			continue
		}
		infos = append(infos, &DiskUsageInfo{
			Total:       humanBytes(usage.Total),
			Used:        humanBytes(usage.Used),
			UsedPercent: fmt.Sprintf("%.1f%%", usage.UsedPercent),
		})
	}
	return infos, nil
}

// HostUptime reports the host uptime, distinct from process uptime.
func (m *Manager) HostUptime() (string, error) {
	uptime, err := host.Uptime()
	if err != nil {
		return "", err
	}
	return (time.Duration(uptime) * time.Second).String(), nil
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMG"[exp])
}
