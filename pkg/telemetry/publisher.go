package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"ridengateway/pkg/psu"
	"ridengateway/pkg/utils/uuidutil"
)

const (
	mqttTimeout        = 1 * time.Second
	mqttConnectTimeout = 5 * time.Second

	defaultInterval = 10 * time.Second
)

// Snapshotter reads the full decoded register file.
type Snapshotter interface {
	GetAllValues(ctx context.Context) (psu.AllValues, error)
}

type Options struct {
	// BrokerURL enables publication when non empty, e.g. tcp://host:1883.
	BrokerURL string
	// Topic overrides the default data/<gateway>/v1/psu topic.
	Topic    string
	Interval time.Duration
	// GatewayID names this gateway in the default topic.
	GatewayID string
}

// Publisher periodically pushes the PSU snapshot to an MQTT broker.
// Publication is best effort and never blocks the serial side beyond
// one snapshot read per interval.
type Publisher struct {
	options    Options
	snapshots  Snapshotter
	mqttClient mqtt.Client
}

type snapshotMessage struct {
	Timestamp string        `json:"timestamp"`
	Gateway   string        `json:"gateway"`
	Values    psu.AllValues `json:"values"`
}

func NewPublisher(options Options, snapshots Snapshotter) *Publisher {
	if options.Interval <= 0 {
		options.Interval = defaultInterval
	}
	if options.Topic == "" {
		options.Topic = fmt.Sprintf("data/%s/v1/psu", options.GatewayID)
	}
	return &Publisher{options: options, snapshots: snapshots}
}

// Enabled reports whether a broker was configured.
func (p *Publisher) Enabled() bool {
	return p.options.BrokerURL != ""
}

// Serve connects to the broker and starts the publish loop, returning
// a shutdown closure. A missing broker URL yields a no-op closure.
func (p *Publisher) Serve(ctx context.Context) (func(), error) {
	if !p.Enabled() {
		return func() {}, nil
	}
	clientOptions := mqtt.NewClientOptions().
		AddBroker(p.options.BrokerURL).
		SetClientID("ridengateway-" + uuidutil.ShortUUID()).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)
	client := mqtt.NewClient(clientOptions)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, errors.Errorf("connect MQTT broker %s: timeout", p.options.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect MQTT broker %s", p.options.BrokerURL)
	}
	p.mqttClient = client

	publishCtx, cancel := context.WithCancel(ctx)
	go wait.UntilWithContext(publishCtx, p.publishOnce, p.options.Interval)
	klog.V(1).InfoS("Telemetry publisher started",
		"broker", p.options.BrokerURL, "topic", p.options.Topic, "interval", p.options.Interval)

	return func() {
		cancel()
		client.Disconnect(2000)
	}, nil
}

func (p *Publisher) publishOnce(ctx context.Context) {
	values, err := p.snapshots.GetAllValues(ctx)
	if err != nil {
		klog.V(2).InfoS("Failed to read snapshot for telemetry", "error", err)
		return
	}
	message := snapshotMessage{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Gateway:   p.options.GatewayID,
		Values:    values,
	}
	marshal, _ := json.Marshal(message)
	token := p.mqttClient.Publish(p.options.Topic, 1, false, marshal)
	if token.WaitTimeout(mqttTimeout) && token.Error() == nil {
		klog.V(5).InfoS("Succeed to publish MQTT", "topic", p.options.Topic)
	} else {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", p.options.Topic, "err", token.Error())
	}
}
