// assetctl is a command-line client for the asset store API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "assetctl",
		Short: "Client for the asset store API",
		Long: `assetctl uploads, downloads and inspects binary assets held by an
asset store server. Large files are transferred through the chunked
upload protocol automatically.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("ASSETSTORE_URL", "http://localhost:8080/api/v1"), "asset store API base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("ASSETSTORE_TOKEN"), "bearer token for authentication")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newInfoCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
