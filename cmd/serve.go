package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/scriptlet/internal/config"
	"github.com/conneroisu/scriptlet/internal/server"
	"github.com/conneroisu/scriptlet/internal/watcher"
)

// serveCmd starts the preview server with live reload.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live reload",
	Long: `Serve renders templates from the store through the compilation pipeline
and previews them in the browser. Edits to store files invalidate the
compilation cache and reload connected pages over a websocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		rt, st, err := buildRuntime(cfg, logger)
		if err != nil {
			return err
		}

		w, err := watcher.New(st.Root(), st, logger, 100*time.Millisecond)
		if err != nil {
			logger.Warn(cmd.Context(), err, "store watching disabled",
				"path", st.Root())
			w = nil
		} else {
			defer w.Close()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(rt, st, logger, cfg.Server.Host, cfg.Server.Port)
		return srv.Run(ctx, w)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := config.Default()
	serveCmd.Flags().String("host", defaults.Server.Host, "interface to bind")
	serveCmd.Flags().IntP("port", "p", defaults.Server.Port, "port to bind")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
