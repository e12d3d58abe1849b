package mdns

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"k8s.io/klog/v2"
)

// Service is one DNS-SD advertisement.
type Service struct {
	Type string
	Port int
	Txt  []string
}

type Options struct {
	Instance string
	Domain   string
}

// Registry advertises the gateway's protocol endpoints. Services are
// registered once the serial side is up and withdrawn on shutdown.
type Registry struct {
	options Options
	servers []*zeroconf.Server
}

func NewRegistry(options Options) *Registry {
	if options.Domain == "" {
		options.Domain = "local."
	}
	return &Registry{options: options}
}

// Register announces one service. Failures are logged, not fatal;
// discovery is best effort.
func (r *Registry) Register(service Service) {
	server, err := zeroconf.Register(r.options.Instance, service.Type,
		r.options.Domain, service.Port, service.Txt, nil)
	if err != nil {
		klog.V(2).InfoS("Failed to register mdns service",
			"type", service.Type, "port", service.Port, "error", err)
		return
	}
	klog.V(2).InfoS("Registered mdns service",
		"instance", r.options.Instance, "type", service.Type, "port", service.Port)
	r.servers = append(r.servers, server)
}

// RegisterAll announces every service of the set.
func (r *Registry) RegisterAll(services []Service) {
	for _, service := range services {
		r.Register(service)
	}
}

// Shutdown withdraws every advertisement.
func (r *Registry) Shutdown() {
	for _, server := range r.servers {
		server.Shutdown()
	}
	r.servers = nil
}

// TxtVersion renders the version TXT record pair.
func TxtVersion(version string) string {
	return fmt.Sprintf("version=%s", version)
}
