package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/strogo/armeria/config"
	"github.com/strogo/armeria/middleware"
	"github.com/strogo/armeria/observability"
	"github.com/strogo/armeria/registry"
	"github.com/strogo/armeria/server"
	"github.com/strogo/armeria/service"
)

const version = "0.3.0"

var app = cli.NewApp()

func init() {
	app.Name = "armeria-server"
	app.Usage = "HTTP bridge for binary RPC services"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML configuration file",
		},
		cli.StringFlag{
			Name:  "listen, l",
			Usage: "host:port to bind, overrides the config file",
		},
		cli.StringFlag{
			Name:  "path, p",
			Usage: "mount path of the RPC handler, overrides the config file",
		},
	}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return err
	}
	if listen := cliCtx.String("listen"); listen != "" {
		cfg.Listen = listen
	}
	if path := cliCtx.String("path"); path != "" {
		cfg.Path = path
	}

	logger, err := observability.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	def, allowed, err := cfg.Formats()
	if err != nil {
		return err
	}

	b := service.NewBuilder()
	if err := b.Register("", &Greeter{}); err != nil {
		return err
	}
	if err := b.Register("clock", &Clock{}); err != nil {
		return err
	}
	reg, err := b.Freeze()
	if err != nil {
		return err
	}

	srv, err := server.New(reg, server.Config{
		DefaultFormat:  def,
		AllowedFormats: allowed,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Middlewares: []middleware.Middleware{
			middleware.Recovery(logger),
			middleware.Logging(logger),
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, srv)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	withdraw := announce(cfg, reg, logger)
	defer withdraw()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving",
			zap.String("listen", cfg.Listen),
			zap.String("path", cfg.Path),
			zap.Strings("services", reg.Keys()),
			zap.String("default_format", def.String()))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// announce publishes the serving endpoint to etcd when endpoints are
// configured, one entry per served key. The returned func withdraws them.
func announce(cfg *config.Config, reg *service.Registry, logger *zap.Logger) func() {
	if len(cfg.Etcd.Endpoints) == 0 {
		return func() {}
	}
	etcdReg, err := registry.NewEtcdRegistry(cfg.Etcd.Endpoints, logger)
	if err != nil {
		logger.Warn("etcd unavailable, serving without announcements", zap.Error(err))
		return func() {}
	}

	ep := registry.Endpoint{
		Addr:        cfg.AnnounceAddr(),
		Path:        cfg.Path,
		Multiplexed: reg.Multiplexed(),
		Weight:      cfg.Etcd.Weight,
		Version:     version,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	announced := make([]string, 0, reg.Len())
	for _, key := range reg.Keys() {
		if err := etcdReg.Register(ctx, key, ep, cfg.Etcd.TTLSeconds); err != nil {
			logger.Warn("announcement failed",
				zap.String("service_key", key), zap.Error(err))
			continue
		}
		announced = append(announced, key)
	}
	logger.Info("announced to etcd", zap.Strings("service_keys", announced))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		for _, key := range announced {
			if err := etcdReg.Deregister(ctx, key, ep.Addr); err != nil {
				logger.Warn("deregister failed",
					zap.String("service_key", key), zap.Error(err))
			}
		}
		etcdReg.Close()
	}
}
