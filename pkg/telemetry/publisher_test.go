package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ridengateway/pkg/psu"
)

type staticSnapshotter struct{}

func (staticSnapshotter) GetAllValues(ctx context.Context) (psu.AllValues, error) {
	return psu.AllValues{}, nil
}

func TestPublisherDefaults(t *testing.T) {
	assert := assert.New(t)

	p := NewPublisher(Options{GatewayID: "abc123"}, staticSnapshotter{})
	assert.Equal("data/abc123/v1/psu", p.options.Topic)
	assert.Equal(defaultInterval, p.options.Interval)
	assert.False(p.Enabled())

	p = NewPublisher(Options{
		BrokerURL: "tcp://broker:1883",
		Topic:     "bench/psu",
		Interval:  time.Minute,
	}, staticSnapshotter{})
	assert.Equal("bench/psu", p.options.Topic)
	assert.Equal(time.Minute, p.options.Interval)
	assert.True(p.Enabled())
}

func TestPublisherDisabledServe(t *testing.T) {
	assert := assert.New(t)

	p := NewPublisher(Options{}, staticSnapshotter{})
	shutdown, err := p.Serve(context.Background())
	assert.NoError(err)
	assert.NotNil(shutdown)
	shutdown()
}
