package main

import (
	"time"

	"github.com/JaimeStill/referrals/internal/api"
	"github.com/JaimeStill/referrals/internal/config"
	"github.com/JaimeStill/referrals/internal/infrastructure"
	"github.com/JaimeStill/referrals/internal/referrals"
)

// Server runs the read-only audit API until shutdown.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, usageErr(err)
	}

	store, err := referrals.OpenStore(cfg.Audit, infra)
	if err != nil {
		return nil, usageErr(err)
	}

	handler := api.NewHandler(cfg, infra, store)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"base_path", cfg.Server.BasePath,
		"version", cfg.Version,
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, handler, cfg.ShutdownTimeoutDuration(), infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Error("subsystem startup failed", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
