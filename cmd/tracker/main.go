// Command tracker runs the multi-camera object-tracking service, or probes
// a running instance's healthcheck endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Multi-camera scene tracker service",
	Long:  "tracker fuses per-camera object detections into scene-level tracks and republishes them over MQTT.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
