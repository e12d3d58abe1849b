package config

import (
	"context"

	gatewayconfig "ridengateway/pkg/config"
	"ridengateway/pkg/gateway"
)

// LabeledCloser pairs a shutdown closure with the name of the service
// it stops, for error reporting during teardown.
type LabeledCloser struct {
	Label  string
	Closer func(ctx context.Context) error
}

type Config struct {
	GatewayMgr  *gateway.Manager
	ConfigStore *gatewayconfig.Store
	CertFile    string
	KeyFile     string
	Closers     []LabeledCloser
}
