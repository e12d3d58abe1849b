package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilserrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"ridengateway/cmd/gateway/options"
	"ridengateway/pkg/generic"
	baseoptions "ridengateway/pkg/generic/options"
	"ridengateway/pkg/version"
	"ridengateway/pkg/version/verflag"
	"ridengateway/pkg/web"
)

const (
	ComponentGateway = "riden-gateway"
)

func NewGatewayCmd() *cobra.Command {
	cleanFlagSet := pflag.NewFlagSet(ComponentGateway, pflag.ContinueOnError)
	o := options.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:                ComponentGateway,
		Long:               `The riden gateway exposes a bench power supply over Modbus TCP, SCPI and VXI-11.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// initial flag parse, since we disable cobra's flag parsing
			if err := cleanFlagSet.Parse(args); err != nil {
				klog.ErrorS(err, "Failed to parse flag")
				_ = cmd.Usage()
				os.Exit(1)
			}

			// check if there are non-flag arguments in the command line
			cmds := cleanFlagSet.Args()
			if len(cmds) > 0 {
				klog.ErrorS(nil, "Unknown command", "command", cmds[0])
				_ = cmd.Usage()
				os.Exit(1)
			}

			verflag.PrintAndExitIfRequested()
			// short-circuit on help
			baseoptions.PrintHelpAndExitIfRequested(cmd, cleanFlagSet)

			// short-circuit on defaultconfig
			baseoptions.PrintDefaultConfigAndExitIfRequested(options.NewDefaultOptions(), cleanFlagSet)

			if err := baseoptions.ParseAndApplyConfigFile(o, args); err != nil {
				return err
			}

			if errs := options.Validate(o); len(errs) != 0 {
				return utilserrors.NewAggregate(errs)
			}

			// To help debugging, immediately log version
			klog.Infof("Version: %+v", version.Get())
			return run(o)
		},
	}

	verflag.AddFlags(cleanFlagSet)
	o.AddFlags(cleanFlagSet)
	o.AddBaseFlags(cmd, cleanFlagSet)

	return cmd
}

func run(o *options.Options) error {
	stopCh := make(chan struct{})

	c, err := o.Config(stopCh)
	if err != nil {
		return err
	}

	server, err := web.NewServer(generic.Default(), o, c)
	if err != nil {
		return err
	}

	exit, err := server.Serve()
	if err != nil {
		return err
	}
	klog.V(1).InfoS("Server started", "port", o.Port)
	// Graceful shutdown
	// Wait for interrupt signal to gracefully shutdown the server
	exitCh := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be catch, so don't need add it
	signal.Notify(exitCh, syscall.SIGINT, syscall.SIGTERM)

	reboot := false
	select {
	case <-exitCh:
	case <-c.GatewayMgr.RebootRequests():
		// A reboot request restarts this process in place of a
		// hardware reset.
		klog.V(1).InfoS("Reboot requested over HTTP")
		reboot = true
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.Wait)
	defer cancel()

	exit(ctx)
	close(stopCh)

	if reboot {
		restartProcess()
	}

	return nil
}

// restartProcess spawns a fresh copy of the current binary with the
// original arguments, then lets this one exit.
func restartProcess() {
	executable, err := os.Executable()
	if err != nil {
		klog.ErrorS(err, "Failed to resolve executable for restart")
		os.Exit(1)
	}
	_, err = os.StartProcess(executable, os.Args, &os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
		Env:   os.Environ(),
	})
	if err != nil {
		klog.ErrorS(err, "Failed to restart process")
		os.Exit(1)
	}
	os.Exit(0)
}
