//go:build windows

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"

	"artloop/core"
	"artloop/logging"
)

// program implements service.Interface, running the generation loop under
// the Windows service manager.
type program struct {
	cfg    *core.Config
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	exit   chan struct{}
}

func (p *program) Start(_ service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	p.cancel()
	select {
	case <-p.exit:
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timeout waiting for service to stop")
	}
	return nil
}

func (p *program) run() {
	defer close(p.exit)

	app, err := newApp(p.cfg, p.logger)
	if err != nil {
		p.logger.Error("failed to assemble pipeline: " + err.Error())
		return
	}
	if err := app.Run(p.ctx); err != nil {
		p.logger.Error("generation loop failed: " + err.Error())
	}
	app.Shutdown()
}

// serviceConfig describes the Windows service registration.
func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "ArtLoop",
		DisplayName: "ArtLoop Image Generation Service",
		Description: "Generates AI images on a schedule with contextual prompt plugins",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

// RunAsService runs under the service manager when not interactive.
// Returns true when the process ran as a service.
func RunAsService(cfg *core.Config, logger *logging.Logger) (bool, error) {
	prg := &program{cfg: cfg, logger: logger}
	s, err := service.New(prg, serviceConfig())
	if err != nil {
		return false, fmt.Errorf("failed to create service: %w", err)
	}

	if service.Interactive() {
		return false, nil
	}
	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}
	return true, nil
}

// HandleServiceCommand handles install/uninstall/start/stop/restart
// subcommands. Returns true when a command was handled.
func HandleServiceCommand(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "install", "uninstall", "start", "stop", "restart":
	default:
		return false
	}

	s, err := service.New(&program{}, serviceConfig())
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	if err := service.Control(s, args[0]); err != nil {
		fmt.Printf("Service %s failed: %v\n", args[0], err)
		os.Exit(core.ExitCodeError)
	}
	fmt.Printf("Service %s completed\n", args[0])
	return true
}
