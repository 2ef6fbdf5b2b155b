package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"Bookshelf/internal/catalog"
	"Bookshelf/internal/config"
	"Bookshelf/pkg/kit"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the web form UI and JSON API",
		GroupID: "server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			c, err := a.openCatalog(ctx, reg)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					a.log.Warn("close catalog failed", zap.Error(err))
				}
			}()

			h := catalog.NewHandler(&catalog.Server{Catalog: c, Log: a.log}, catalog.HTTPDeps{
				Log:            a.log,
				Service:        service,
				Registry:       reg,
				MetricsEnabled: a.cfg.MetricsEnable,
				MetricsToken:   a.cfg.MetricsToken,
				MutationLimit:  a.cfg.MutationLimit,
			})

			a.log.Info("serving catalog",
				zap.String("store", a.cfg.Store),
				zap.String("data", a.cfg.DataPath),
			)
			return kit.RunHTTPServer(ctx, a.cfg.Addr, h, a.log)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.Bool("metrics", false, "expose /metrics (requires --metrics-token)")
	f.String("metrics-token", "", "bearer token guarding /metrics")
	f.Int("mutation-limit", 120, "changes allowed per client IP per minute, 0 disables")

	a.bindLocalFlag(cmd, config.KeyAddr, "addr")
	a.bindLocalFlag(cmd, config.KeyMetrics, "metrics")
	a.bindLocalFlag(cmd, config.KeyMetricsToken, "metrics-token")
	a.bindLocalFlag(cmd, config.KeyMutationLimit, "mutation-limit")
	return cmd
}

func (a *app) bindLocalFlag(cmd *cobra.Command, key, flag string) {
	if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic("bind flag " + flag + ": " + err.Error())
	}
}
