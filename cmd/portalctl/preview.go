package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siddesa/portal/internal/plugins/upload"
)

// detailFlags are the record fields that shape the server-side filename.
type detailFlags struct {
	kind     string
	title    string
	name     string
	position string
}

func (d *detailFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.kind, "kind", "", "upload kind: news, official, hero_slider, logo, struktur (default generic)")
	cmd.Flags().StringVar(&d.title, "title", "", "news or hero slider title")
	cmd.Flags().StringVar(&d.name, "name", "", "official's name")
	cmd.Flags().StringVar(&d.position, "position", "", "official's position")
}

func (d *detailFlags) parse() (upload.Kind, upload.Details, error) {
	k, ok := upload.ParseKind(d.kind)
	if !ok {
		return "", upload.Details{}, fmt.Errorf("unknown kind %q", d.kind)
	}
	return k, upload.Details{Title: d.title, Name: d.name, Position: d.position}, nil
}

func newPreviewCmd() *cobra.Command {
	var d detailFlags

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Show the filename the server is expected to assign",
		Long: `Preview prints the advisory filename for an upload. It is display text
only; the server returns the real name. For generic uploads the file's own
name is used when no title is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, det, err := d.parse()
			if err != nil {
				return err
			}
			name, extra := det.PreviewContext(k)
			if name == "" && len(args) == 1 {
				base := filepath.Base(args[0])
				name = strings.TrimSuffix(base, filepath.Ext(base))
			}
			fmt.Fprintln(cmd.OutOrStdout(), upload.Preview(name, k, extra))
			return nil
		},
	}
	d.register(cmd)
	return cmd
}
