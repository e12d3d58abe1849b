package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"ridengateway/cmd/gateway/config"
	"ridengateway/cmd/gateway/options"
	"ridengateway/pkg/apis/response"
	gatewayconfig "ridengateway/pkg/config"
	"ridengateway/pkg/gateway"
	"ridengateway/pkg/generic"
)

type Server struct {
	*generic.Server
	*config.Config
}

func NewServer(router *gin.Engine, o *options.Options, config *config.Config) (*Server, error) {
	allowMethods := []string{http.MethodPost, http.MethodGet, http.MethodDelete, http.MethodPut, http.MethodPatch}

	s := &generic.Server{
		Router:  router,
		Port:    o.Port,
		Methods: allowMethods,
	}

	server := &Server{
		Server: s,
		Config: config,
	}

	server.InstallHandlers()

	return server, nil
}

func (s *Server) InstallHandlers() {
	mgr := s.Config.GatewayMgr

	s.Router.GET("/", getStatus(mgr))
	s.Router.GET("/psu/", getPsu(mgr))
	s.Router.GET("/config/", getConfig(s.Config.ConfigStore))
	s.Router.POST("/config/", postConfig(s.Config.ConfigStore))
	s.Router.PATCH("/config/", patchConfig(s.Config.ConfigStore))
	s.Router.POST("/disconnect_client/", disconnectClient(mgr))
	s.Router.GET("/reboot/dongle/", rebootDongle(mgr))
	s.Router.POST("/firmware/update/", updateFirmware(mgr))
	s.Router.GET("/lxi/identification", getLxiIdentification(mgr))
	s.Router.GET("/qps/modbus/", getModbusQps(mgr))

	v1 := s.Router.Group("/api/v1")
	gateway.InstallHandler(v1, mgr)
}

func getStatus(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mgr.Status(c.Request.Context()))
	}
}

func getPsu(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !mgr.Connected() {
			c.JSON(http.StatusServiceUnavailable, response.ErrInstrumentNotConnected)
			return
		}
		values, err := mgr.Snapshot(c.Request.Context())
		if err != nil {
			klog.V(2).InfoS("Failed to read snapshot", "err", err)
			c.JSON(http.StatusServiceUnavailable, response.ErrInstrumentNotConnected)
			return
		}
		c.JSON(http.StatusOK, values)
	}
}

type configView struct {
	Record    gatewayconfig.Record `json:"record"`
	Timezones []string             `json:"timezones"`
	BaudRates []uint32             `json:"uartBaudRates"`
}

func getConfig(store *gatewayconfig.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := make([]string, 0, len(gatewayconfig.Timezones))
		for _, tz := range gatewayconfig.Timezones {
			names = append(names, tz.Name)
		}
		c.JSON(http.StatusOK, configView{
			Record:    store.Record(),
			Timezones: names,
			BaudRates: gatewayconfig.BaudRates,
		})
	}
}

func postConfig(store *gatewayconfig.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		timezone := c.PostForm("timezone")
		var baudRate uint32
		if _, err := fmt.Sscanf(c.PostForm("baudrate"), "%d", &baudRate); err != nil {
			c.String(http.StatusBadRequest, gatewayconfig.ErrBaudRate.Error())
			return
		}
		if err := store.Update(timezone, baudRate); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.Redirect(http.StatusFound, "/config/")
	}
}

func patchConfig(store *gatewayconfig.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		patch, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrRequestBody)
			return
		}
		current, err := json.Marshal(store.Record())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		merged, err := jsonpatch.MergePatch(current, patch)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrMalformedJSON)
			return
		}
		var record gatewayconfig.Record
		if err := json.Unmarshal(merged, &record); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrMalformedJSON)
			return
		}
		if err := store.Apply(record); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusOK, store.Record())
	}
}

func disconnectClient(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.PostForm("ip")
		protocol := c.PostForm("protocol")
		if err := mgr.DisconnectClient(protocol, ip); err != nil {
			klog.V(2).InfoS("Failed to disconnect client",
				"protocol", protocol, "ip", ip, "err", err)
			c.JSON(http.StatusNotFound, response.ErrClientNotFound(ip))
			return
		}
		c.Redirect(http.StatusFound, "/")
	}
}

func rebootDongle(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		portal := c.Query("config_portal") == "true"
		if err := mgr.RequestReboot(portal); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "Rebooting\n")
	}
}

func updateFirmware(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("firmware")
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		reader, err := file.Open()
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		defer reader.Close()
		data, err := io.ReadAll(reader)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		if err := mgr.StageFirmware(file.Filename, data); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		if err := mgr.RequestReboot(false); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "Update staged, rebooting\n")
	}
}

const lxiIdentificationTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<LXIDevice xmlns="http://www.lxistandard.org/InstrumentIdentification/1.0">
  <Manufacturer>%s</Manufacturer>
  <Model>%s</Model>
  <SerialNumber>%s</SerialNumber>
  <FirmwareRevision>%s</FirmwareRevision>
  <ManufacturerDescription>Bench power supply network gateway</ManufacturerDescription>
  <HomepageURL>http://%s/</HomepageURL>
  <DriverURL>http://%s/</DriverURL>
  <Interface InterfaceType="LXI" InterfaceName="eth0">
    <InstrumentAddressString>%s</InstrumentAddressString>
    <InstrumentAddressString>%s</InstrumentAddressString>
    <Hostname>%s</Hostname>
  </Interface>
  <IVISoftwareModuleName></IVISoftwareModuleName>
  <Domain>1</Domain>
  <LXIVersion>1.5</LXIVersion>
</LXIDevice>
`

func getLxiIdentification(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		id := mgr.Identification(host)
		document := fmt.Sprintf(lxiIdentificationTemplate,
			id.Manufacturer, id.Model, id.SerialNumber, id.Firmware,
			host, host,
			id.VisaInstrument, id.VisaRawSocket, id.Hostname)
		c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(document))
	}
}

func getModbusQps(mgr *gateway.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		qps, err := mgr.MeasureQps(c.Request.Context())
		if err != nil {
			c.String(http.StatusServiceUnavailable, err.Error())
			return
		}
		c.String(http.StatusOK, "%.1f queries/second\n", qps)
	}
}

func (s *Server) Serve() (func(ctx context.Context), error) {
	var srv *http.Server
	if len(s.Config.CertFile) != 0 && len(s.Config.KeyFile) != 0 {
		x509KeyPair, err := tls.LoadX509KeyPair(s.Config.CertFile, s.Config.KeyFile)
		if err != nil {
			return nil, err
		}
		c := &tls.Config{
			Certificates: []tls.Certificate{x509KeyPair},
		}

		srv = &http.Server{
			Addr:      fmt.Sprintf(":%s", s.Port),
			Handler:   s.Router,
			TLSConfig: c,
		}
		go func() {
			klog.Error(srv.ListenAndServeTLS("", ""))
		}()
	} else {
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%s", s.Port),
			Handler: s.Router,
		}
		go func() {
			klog.Error(srv.ListenAndServe())
		}()
	}

	return func(ctx context.Context) {
		srv.SetKeepAlivesEnabled(false)
		var errs []string
		for i := len(s.Config.Closers); i > 0; i-- {
			lc := s.Config.Closers[i-1]
			if err := lc.Closer(ctx); err != nil {
				klog.V(2).InfoS("Failed to stopped Dependencies service", "service", lc.Label)
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			klog.ErrorS(nil, "Failed to shutdown services", "errors", strings.Join(errs, ","))
		}
		if err := srv.Shutdown(ctx); err != nil {
			klog.Error(err)
		}
	}, nil
}
