package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiolibrelab/jamcapture/internal/capture"
	"github.com/audiolibrelab/jamcapture/internal/capture/providertest"
	"github.com/audiolibrelab/jamcapture/internal/service"

	"github.com/spf13/cobra"
)

var (
	useFixtureProviders bool
	outputDirOverride   string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record microphone and system audio",
	Long: `Record audio from the microphone and system audio output
simultaneously, mixing them into a single stereo WAV file.

No production capture backend ships with this tool; pass --fixture to
smoke-test the pipeline against an in-process loopback source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var micProvider, systemProvider capture.Provider
		if useFixtureProviders {
			micProvider, systemProvider = fixtureProviders()
		} else {
			return fmt.Errorf("no capture provider wired; pass --fixture to smoke-test the pipeline, or inject a platform provider in a host application")
		}

		if outputDirOverride != "" {
			cfg.OutputDir = outputDirOverride
		}

		svc, err := service.New(cfg, micProvider, systemProvider)
		if err != nil {
			return fmt.Errorf("failed to construct capture service: %w", err)
		}

		slog.Info("starting capture")
		if err := svc.Start(); err != nil {
			return fmt.Errorf("failed to start capture: %w", err)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		slog.Info("stopping capture")
		result, err := svc.Stop()
		if err != nil {
			return fmt.Errorf("failed to stop capture: %w", err)
		}

		fmt.Printf("Recording saved: %s (checksum %s)\n", result.Path, result.Checksum)
		return nil
	},
}

func fixtureProviders() (capture.Provider, capture.Provider) {
	micBuf := [][]float32{{0.1, 0.15, 0.2, 0.15}, {0.05, 0.1, 0.05, 0.0}}
	systemBuf := [][]float32{{0.05, 0.06, 0.05, 0.06}, {0.04, 0.05, 0.04, 0.05}}

	mic := providertest.NewFixtureProvider(
		capture.AudioSource{ID: "fixture-mic", Name: "Fixture Mic"},
		micBuf, 48000, 1, 20*time.Millisecond,
	)
	system := providertest.NewFixtureProvider(
		capture.AudioSource{ID: "fixture-system", Name: "Fixture System Audio"},
		systemBuf, 48000, 2, 20*time.Millisecond,
	)
	return mic, system
}

func init() {
	recordCmd.Flags().BoolVar(&useFixtureProviders, "fixture", false, "use in-process fixture providers instead of a platform capture backend")
	recordCmd.Flags().StringVarP(&outputDirOverride, "output", "o", "", "output directory (overrides config)")
}
