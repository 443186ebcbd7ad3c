package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globals are the persistent flags shared by every command.
type globals struct {
	apiBaseURL string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Village portal upload and settings tool",
		Long: `portalctl drives the portal's upload pipeline and settings cache without
the admin panel.

Example usage:
  portalctl compress foto.jpg -o foto-kecil.jpg
  portalctl preview --kind official --name "Budi Santoso" --position "Kepala Desa" foto.jpg
  portalctl upload --kind generic --token $TOKEN dokumen.pdf
  portalctl settings get
  portalctl settings invalidate --redis redis://localhost:6379`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAPI := os.Getenv("API_BASE_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8081"
	}
	root.PersistentFlags().StringVar(&g.apiBaseURL, "api", defaultAPI, "village API base URL")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newCompressCmd(g),
		newPreviewCmd(),
		newUploadCmd(g),
		newSettingsCmd(g),
	)
	return root
}
