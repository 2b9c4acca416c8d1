package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenescape/tracker/internal/healthcheck"
)

var (
	hcPort     int
	hcEndpoint string
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Query a running tracker's health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := healthcheck.Probe(hcPort, hcEndpoint, 5*time.Second)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().IntVar(&hcPort, "port", 8080, "Port of healthcheck server to query")
	healthcheckCmd.Flags().StringVar(&hcEndpoint, "endpoint", "/readyz", "Health endpoint to query")
}
