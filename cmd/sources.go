package cmd

import (
	"fmt"

	"github.com/audiolibrelab/jamcapture/internal/capture"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio sources",
	Long: `List audio sources visible to the wired capture providers.
With no platform provider wired, this lists the fixture sources used
by --fixture recordings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mic, system := fixtureProviders()
		var sources []capture.AudioSource
		if mic.IsAvailable() {
			sources = append(sources, mic.DeviceInfo())
		}
		if system.IsAvailable() {
			sources = append(sources, capture.AudioSource{
				ID:        "system-audio",
				Name:      "System Audio",
				Transport: capture.TransportVirtual,
			})
		}

		fmt.Printf("Audio sources (%d found):\n", len(sources))
		for i, source := range sources {
			fmt.Printf("  %d. %s (%s, transport=%s)\n", i+1, source.Name, source.ID, source.Transport)
		}
		return nil
	},
}
