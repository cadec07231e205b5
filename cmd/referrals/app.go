package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/config"
	"github.com/JaimeStill/referrals/internal/infrastructure"
	"github.com/JaimeStill/referrals/internal/referrals"
)

// app is the configured runtime shared by the one-shot commands.
type app struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, usageErr(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, usageErr(err)
	}
	return cfg, nil
}

// startApp loads configuration, creates the infrastructure, and blocks until
// every configured subsystem has started.
func startApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, usageErr(err)
	}

	if err := infra.Start(); err != nil {
		return nil, err
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, err
	}

	return &app{cfg: cfg, infra: infra}, nil
}

func (a *app) close() {
	if err := a.infra.Lifecycle.Shutdown(a.cfg.ShutdownTimeoutDuration()); err != nil {
		a.infra.Logger.Warn("shutdown incomplete", "error", err)
	}
}

func (a *app) system() (referrals.System, error) {
	sys, err := referrals.NewFromConfig(a.cfg, a.infra)
	if err != nil {
		return nil, usageErr(fmt.Errorf("build referral system: %w", err))
	}
	return sys, nil
}

func (a *app) store() (audit.Store, error) {
	store, err := referrals.OpenStore(a.cfg.Audit, a.infra)
	if err != nil {
		return nil, usageErr(err)
	}
	return store, nil
}
