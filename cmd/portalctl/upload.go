package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/siddesa/portal/internal/plugins/upload"
)

func newUploadCmd(g *globals) *cobra.Command {
	var (
		d          detailFlags
		token      string
		noCompress bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the village API",
		Long: `Upload sends a file to the village API's upload endpoint, compressing
images first unless --no-compress is given. Files sent with --no-compress
must be at most 5 MB. Only the file is stored; create
the owning record from the admin panel.

The bearer token is read from --token or the PORTAL_TOKEN environment
variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), colorEnabled(g.noColor))

			k, det, err := d.parse()
			if err != nil {
				return err
			}
			if token == "" {
				token = os.Getenv("PORTAL_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("no token: pass --token or set PORTAL_TOKEN")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			f := upload.NewFile(args[0], data)
			if k == upload.KindLogo && !upload.IsLogoFormat(data) {
				return fmt.Errorf("logo must be PNG or SVG, got %s", f.MIME)
			}
			if err := upload.CheckSize(f, !noCompress, upload.DefaultHardLimit); err != nil {
				return err
			}

			if !noCompress && f.Compressible() {
				res := upload.NewCompressor(upload.DefaultCompressOptions()).Compress(cmd.Context(), f, nil)
				if res.FellBack {
					p.Warning("compression failed, uploading the original")
				} else if res.Savings > 0 {
					p.Info("compressed %s -> %s", upload.FormatFileSize(res.OriginalSize), upload.FormatFileSize(res.File.Size()))
				}
				f = res.File
			}

			next := 0
			progress := func(pct int) {
				if pct >= next {
					p.Info("uploading %s: %d%%", f.Name, pct)
					next = pct/25*25 + 25
				}
			}

			res, err := upload.NewTransport(nil, timeout).Upload(cmd.Context(), f,
				upload.Endpoint(g.apiBaseURL, k), token, progress, upload.NamingFields(k, det))
			if err != nil {
				return errors.New(upload.UserMessage(err))
			}

			p.Success("uploaded %s", res.URL)
			if res.Filename != "" {
				p.Info("stored as %s", res.Filename)
			}
			return nil
		},
	}

	d.register(cmd)
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default $PORTAL_TOKEN)")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "send the file unchanged")
	cmd.Flags().DurationVar(&timeout, "timeout", upload.DefaultTimeout, "upload timeout")
	return cmd
}
