package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"envhttpd/bus"
	"envhttpd/services/config"
	"envhttpd/services/hal"
	"envhttpd/services/heartbeat"
	"envhttpd/services/httpd"
	"envhttpd/services/metrics"
	"envhttpd/types"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server", "web"},
		Short:   "Run the HTTP server",
		Long:    `Runs the sensor report server and, when admin.listen is set, the metrics/health listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("listen", "", "address to listen on (overrides server.listen)")
	cmd.Flags().String("admin-listen", "", "metrics/health address (overrides admin.listen)")
	_ = a.v.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	_ = a.v.BindPFlag("admin.listen", cmd.Flags().Lookup("admin-listen"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	b := bus.NewBus(8)
	config.Publish(b.NewConnection("config"), a.cfg)

	m := metrics.New()
	go m.Run(ctx, b.NewConnection("metrics"), a.log)

	hb := heartbeat.New(a.log)
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	st, err := hal.New(ctx, a.cfg.HAL, hal.Options{Conn: b.NewConnection("hal"), Logger: a.log})
	if err != nil {
		return err
	}
	defer st.Close()
	for _, s := range st.Sensors() {
		a.log.Info("sensor configured", "id", s.ID, "sensor", s.Sensor, "bus", s.Bus, "addr", s.Addr)
	}

	g, gctx := errgroup.WithContext(ctx)

	public := httpd.NewServer(a.cfg.Server, httpd.NewRouter(st, a.log, m.WrapHandler), a.log.With("listener", "public"))
	g.Go(func() error { return public.ListenAndServe(gctx) })

	if a.cfg.Admin.Listen != "" {
		adminCfg := types.ServerConfig{
			Listen:      a.cfg.Admin.Listen,
			RecvTimeout: a.cfg.Server.RecvTimeout,
			SendTimeout: a.cfg.Server.SendTimeout,
		}
		admin := httpd.NewServer(adminCfg, httpd.NewAdminRouter(m.Handler(), st, a.log), a.log.With("listener", "admin"))
		g.Go(func() error { return admin.ListenAndServe(gctx) })
	}

	return g.Wait()
}
