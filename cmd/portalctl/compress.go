package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/siddesa/portal/internal/plugins/upload"
)

func newCompressCmd(g *globals) *cobra.Command {
	opts := upload.DefaultCompressOptions()
	var output string

	cmd := &cobra.Command{
		Use:   "compress <file>",
		Short: "Compress an image the way the upload form does",
		Long: `Compress resizes and re-encodes an image with the upload pipeline's
compressor. When the result is not smaller, or the image cannot be decoded,
the original is kept and written unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), colorEnabled(g.noColor))

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			f := upload.NewFile(args[0], data)
			if !f.Compressible() {
				p.Warning("%s (%s) is not a compressible image, copying as is", f.Name, f.MIME)
			}

			res := upload.NewCompressor(opts).Compress(cmd.Context(), f, nil)

			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), "min-"+res.File.Name)
			}
			if err := os.WriteFile(output, res.File.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			switch {
			case res.FellBack:
				p.Warning("compression failed, original kept: %v", res.Err)
			case res.Savings == 0:
				p.Info("already small enough, original kept")
			default:
				p.Success("%s -> %s (hemat %d%%)",
					upload.FormatFileSize(res.OriginalSize), upload.FormatFileSize(res.File.Size()), res.Savings)
			}
			p.Info("written to %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default min-<name> next to the input)")
	cmd.Flags().Float64Var(&opts.MaxSizeMB, "max-size-mb", opts.MaxSizeMB, "target size in megabytes")
	cmd.Flags().IntVar(&opts.MaxDimension, "max-dimension", opts.MaxDimension, "longest edge in pixels")
	cmd.Flags().Float64Var(&opts.Quality, "quality", opts.Quality, "initial quality in (0, 1]")
	return cmd
}
