package cmd

import (
	"fmt"
	"os"

	"github.com/audiolibrelab/jamcapture/internal/config"
	"github.com/audiolibrelab/jamcapture/internal/server"
	"github.com/audiolibrelab/jamcapture/internal/service"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Start the capture control server: a JSON status/control API
plus a websocket feed of capture events, for driving the pipeline
remotely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		configPath := cfgFile
		if configPath == "" {
			configPath = os.ExpandEnv("$HOME/.config/jamcapture.yaml")
		}
		serveCfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		mic, system := fixtureProviders()
		svc, err := service.New(serveCfg, mic, system)
		if err != nil {
			return fmt.Errorf("failed to construct capture service: %w", err)
		}

		srv := server.New(svc, ":"+port)
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the control server")
}
