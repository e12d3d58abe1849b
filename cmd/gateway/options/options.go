package options

import (
	"context"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"ridengateway/cmd/gateway/config"
	gatewayconfig "ridengateway/pkg/config"
	"ridengateway/pkg/gateway"
	baseoptions "ridengateway/pkg/generic/options"
	"ridengateway/pkg/mdns"
	"ridengateway/pkg/protocol/modbusrtu"
	"ridengateway/pkg/protocol/modbustcp"
	"ridengateway/pkg/scpi"
	"ridengateway/pkg/storage"
	"ridengateway/pkg/telemetry"
	"ridengateway/pkg/version"
	"ridengateway/pkg/vxi11"
)

type Options struct {
	Port         string        `json:"port"`
	Wait         time.Duration `json:"graceful-timeout"`
	SerialPort   string        `json:"serial-port"`
	ModbusPort   int           `json:"modbus-port"`
	ScpiPort     int           `json:"scpi-port"`
	VxiPortStart uint32        `json:"vxi-port-start"`
	VxiPortEnd   uint32        `json:"vxi-port-end"`
	MqttBroker   string        `json:"mqtt-broker"`
	MqttTopic    string        `json:"mqtt-topic"`
	MqttInterval time.Duration `json:"mqtt-interval"`
	DisableMdns  bool          `json:"disable-mdns"`
	baseoptions.BaseOptions
}

const (
	_defaultPort       = "80"
	_defaultWait       = 15 * time.Second
	_defaultSerialPort = "/dev/ttyUSB0"
	_defaultBootWait   = 8 * time.Second
)

func NewDefaultOptions() *Options {
	return &Options{
		Port:         _defaultPort,
		Wait:         _defaultWait,
		SerialPort:   _defaultSerialPort,
		MqttInterval: 10 * time.Second,
		BaseOptions:  baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port the HTTP control surface listens on")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.SerialPort, "serial-port", o.SerialPort, "Serial device connected to the power supply")
	fs.IntVar(&o.ModbusPort, "modbus-port", o.ModbusPort, "Modbus TCP bridge port, 0 selects the default")
	fs.IntVar(&o.ScpiPort, "scpi-port", o.ScpiPort, "Raw SCPI port, 0 selects the default")
	fs.Uint32Var(&o.VxiPortStart, "vxi-port-start", o.VxiPortStart, "First port of the VXI-11 core channel interval, 0 selects the default")
	fs.Uint32Var(&o.VxiPortEnd, "vxi-port-end", o.VxiPortEnd, "Last port of the VXI-11 core channel interval")
	fs.StringVar(&o.MqttBroker, "mqtt-broker", o.MqttBroker, "MQTT broker URL for telemetry, empty disables publication")
	fs.StringVar(&o.MqttTopic, "mqtt-topic", o.MqttTopic, "MQTT telemetry topic, empty derives one from the gateway id")
	fs.DurationVar(&o.MqttInterval, "mqtt-interval", o.MqttInterval, "Interval between telemetry snapshots")
	fs.BoolVar(&o.DisableMdns, "disable-mdns", o.DisableMdns, "Do not advertise services over DNS-SD")
}

// Config assembles the full gateway: storage, configuration, serial
// master, the three instrument transports, discovery and telemetry.
// Every started service contributes a labeled closer for teardown.
func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	c := &config.Config{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stopCh
		cancel()
	}()

	store := storage.NewFsClient(storage.StoreGroupGateway)

	configStore := gatewayconfig.NewStore(store)
	if err := configStore.Load(); err != nil {
		klog.V(2).InfoS("Failed to load configuration, using defaults", "err", err)
	}
	c.ConfigStore = configStore
	// The portal flag is consumed exactly once per boot; the portal
	// itself is run by an external supervisor.
	if portal, err := configStore.GetAndResetPortalOnBoot(); err == nil && portal {
		klog.V(1).InfoS("Configuration portal requested for this boot")
	}

	master := modbusrtu.NewMaster(modbusrtu.MasterOptions{
		Port:     o.SerialPort,
		BaudRate: int(configStore.UartBaudRate()),
		BootWait: _defaultBootWait,
	})
	serialUp := true
	if err := master.Connect(ctx); err != nil {
		klog.ErrorS(err, "Failed to connect power supply", "port", o.SerialPort)
		serialUp = false
	}
	c.Closers = append(c.Closers, config.LabeledCloser{
		Label: "serial-master",
		Closer: func(ctx context.Context) error {
			master.Destroy(ctx)
			return nil
		},
	})
	if serialUp {
		syncClock(ctx, master, configStore.TimezoneName())
	}

	arbiter := scpi.NewArbiter()
	engine := scpi.NewEngine(master)

	bridge := modbustcp.NewBridge(modbustcp.BridgeOptions{Port: o.ModbusPort}, master)
	shutdownBridge, err := bridge.Serve(ctx)
	if err != nil {
		return nil, err
	}
	c.Closers = append(c.Closers, closer("modbus-tcp", shutdownBridge))

	rawServer := scpi.NewRawServer(scpi.RawServerOptions{Port: o.ScpiPort}, engine, arbiter)
	shutdownRaw, err := rawServer.Serve(ctx)
	if err != nil {
		return nil, err
	}
	c.Closers = append(c.Closers, closer("scpi-raw", shutdownRaw))

	core := vxi11.NewCore(vxi11.CoreOptions{
		PortStart: o.VxiPortStart,
		PortEnd:   o.VxiPortEnd,
	}, engine, arbiter)
	shutdownCore, err := core.Serve(ctx)
	if err != nil {
		return nil, err
	}
	c.Closers = append(c.Closers, closer("vxi11-core", shutdownCore))

	portmap := vxi11.NewPortmap(vxi11.PortmapOptions{}, core)
	shutdownPortmap, err := portmap.Serve(ctx)
	if err != nil {
		return nil, err
	}
	c.Closers = append(c.Closers, closer("rpc-portmap", shutdownPortmap))

	mgr := gateway.NewGatewayManager(store, master, bridge, rawServer, core, configStore, stopCh,
		gateway.WithVersion(version.Get().String()),
		gateway.WithTelemetry(o.MqttBroker != ""),
	)
	mgr.Init()
	c.GatewayMgr = mgr

	if serialUp && !o.DisableMdns {
		registry := mdns.NewRegistry(mdns.Options{Instance: mgr.Hostname()})
		services := []mdns.Service{
			{Type: "_http._tcp", Port: 80, Txt: []string{mdns.TxtVersion(version.Get().String())}},
			{Type: "_lxi._tcp", Port: 80},
			{Type: "_scpi-raw._tcp", Port: rawServer.Port()},
			{Type: "_modbus._tcp", Port: bridge.Port(), Txt: []string{"unitid=1"}},
		}
		if core.FixedPort() {
			services = append(services, mdns.Service{
				Type: "_vxi-11._tcp", Port: int(core.CorePort()),
			})
		}
		registry.RegisterAll(services)
		c.Closers = append(c.Closers, config.LabeledCloser{
			Label: "mdns",
			Closer: func(ctx context.Context) error {
				registry.Shutdown()
				return nil
			},
		})
	}

	meta, _ := mgr.GetGatewayMeta()
	publisher := telemetry.NewPublisher(telemetry.Options{
		BrokerURL: o.MqttBroker,
		Topic:     o.MqttTopic,
		Interval:  o.MqttInterval,
		GatewayID: meta.ID,
	}, master)
	shutdownTelemetry, err := publisher.Serve(ctx)
	if err != nil {
		klog.ErrorS(err, "Failed to start telemetry publisher")
	} else {
		c.Closers = append(c.Closers, closer("telemetry", shutdownTelemetry))
	}

	return c, nil
}

func closer(label string, shutdown func()) config.LabeledCloser {
	return config.LabeledCloser{
		Label: label,
		Closer: func(ctx context.Context) error {
			shutdown()
			return nil
		},
	}
}

// syncClock pushes trusted wall-clock time to the instrument once,
// rendered in the configured timezone.
func syncClock(ctx context.Context, master *modbusrtu.Master, timezoneName string) {
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		location = time.UTC
	}
	if err := master.SetClock(ctx, time.Now().In(location)); err != nil {
		klog.V(2).InfoS("Failed to sync instrument clock", "err", err)
	}
}
