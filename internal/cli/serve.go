package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/hrintel/internal/server"
	"github.com/ppiankov/hrintel/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve detection and analysis over HTTP",
	Long: `Serve starts the HTTP API:

  POST /api/v1/documents/analyze   {"title", "type", "content"}
  POST /api/v1/documents/detect    {"content"}
  GET  /api/v1/analyses?limit=N    analysis history (store.enabled)
  GET  /api/v1/analyses/:id
  GET  /healthz

With the store enabled, old analyses are pruned on the store.prune_spec
cron schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store != nil {
		c, err := store.StartPruneJob(a.store, cfg.Store.PruneSpec, cfg.Store.Retention, a.log)
		if err != nil {
			return err
		}
		defer c.Stop()
	}

	srv := server.New(a.analyzer, server.Options{
		Provider: a.provider,
		Store:    a.store,
		Detector: a.detector,
		Logger:   a.log,
	})
	return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
}
