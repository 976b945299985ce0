package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"TeamBoard/internal/export"
)

var (
	exportFormats []string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export <board.json>",
	Short: "Render a saved board to PNG or PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringSliceVarP(&exportFormats, "format", "f", []string{"png"}, "output formats: png, pdf, json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output directory (default export.dir)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bf, err := export.LoadFile(args[0])
	if err != nil {
		return err
	}
	if exportOut != "" {
		cfg.Export.Dir = exportOut
	}
	x := export.NewExporter(cfg.Export, cfg.Canvas, logger)

	session := bf.Session
	if session == "" {
		session = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	for _, f := range exportFormats {
		path, err := x.Export(export.Format(strings.ToLower(strings.TrimSpace(f))), session, bf.Elements)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
