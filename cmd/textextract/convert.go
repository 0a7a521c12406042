// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/textextract/internal/convert"
	"github.com/pdiddy/textextract/internal/ledger"
	"github.com/pdiddy/textextract/internal/tika"
	"github.com/pdiddy/textextract/internal/toolexec"
	"github.com/pdiddy/textextract/internal/tools"
	"github.com/pdiddy/textextract/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [patterns...]",
	Short: "Convert documents matched by glob patterns to text",
	Long: `Convert expands each pattern (** matches any number of directories) and
converts every matched file in order. Metadata is always regenerated. PDFs
whose text layer yields too few words are rasterized to TIFF and OCRed.

Documents that already have a .txt sibling are skipped unless
--skip-converted=false is given.`,
	Example: `  textextract convert 'archive/**/*.pdf' 'archive/**/*.xlsx'
  textextract convert --skip-converted=false --text-port 9998 --metadata-port 8887 '*.pdf'`,
	RunE: runConvert,
}

// convertFlags maps viper keys to convert flags.
var convertFlags = map[string]string{
	"skip_converted":        "skip-converted",
	"min_words":             "min-words",
	"service.host":          "host",
	"service.text_port":     "text-port",
	"service.metadata_port": "metadata-port",
	"service.protocol":      "protocol",
	"service.retries":       "service-retries",
	"tools.font_inspector":  "font-inspector",
	"tools.rasterizer":      "rasterizer",
	"tools.ocr":             "ocr",
	"tools.ocr_languages":   "ocr-lang",
	"tools.pdffonts_bin":    "pdffonts-bin",
	"tools.ghostscript_bin": "gs-bin",
	"tools.tesseract_bin":   "tesseract-bin",
	"tools.timeout":         "tool-timeout",
}

func init() {
	f := convertCmd.Flags()
	f.Bool("skip-converted", true, "skip documents that already have a .txt file")
	f.Int("min-words", convert.DefaultMinWords, "words direct extraction must exceed to be kept")
	f.String("host", types.DefaultServiceHost, "extraction service host")
	f.Int("text-port", types.DefaultTextPort, "text-extraction service port")
	f.Int("metadata-port", types.DefaultMetadataPort, "metadata-extraction service port")
	f.String("protocol", string(types.ProtocolSocket), "service protocol: socket or http")
	f.Int("service-retries", 0, "retries of busy (429/503) answers over http (0 sends once)")
	f.String("font-inspector", "pdffonts", "font inspector backend: pdffonts or pdfcpu")
	f.String("rasterizer", "ghostscript", "rasterizer backend: ghostscript or fitz")
	f.String("ocr", "tesseract", "OCR backend: tesseract (or gosseract in tagged builds, which needs --rasterizer fitz)")
	f.StringSlice("ocr-lang", nil, "OCR languages, e.g. eng,deu")
	f.String("pdffonts-bin", "", "pdffonts binary (default pdffonts)")
	f.String("gs-bin", "", "ghostscript binary (default gs)")
	f.String("tesseract-bin", "", "tesseract binary (default tesseract)")
	f.Duration("tool-timeout", 0, "timeout for each external tool call (0 disables)")

	for key, name := range convertFlags {
		_ = viper.BindPFlag(key, f.Lookup(name))
	}

	rootCmd.AddCommand(convertCmd)
}

// loadConversionConfig resolves flags, environment and config file into a
// ConversionConfig.
func loadConversionConfig(v *viper.Viper) (types.ConversionConfig, error) {
	v.SetDefault("skip_converted", true)
	v.SetDefault("min_words", convert.DefaultMinWords)

	var cfg types.ConversionConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	cfg.Defaults()
	return cfg, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more file patterns")
	}

	cfg, err := loadConversionConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := slog.Default()

	runner := toolexec.New(toolexec.WithTimeout(cfg.Tools.Timeout), toolexec.WithLogger(logger))
	fonts, err := tools.NewFontInspector(runner, cfg.Tools)
	if err != nil {
		return err
	}
	raster, err := tools.NewRasterizer(runner, cfg.Tools)
	if err != nil {
		return err
	}
	ocr, err := tools.NewOCREngine(runner, cfg.Tools)
	if err != nil {
		return err
	}
	if err := tools.Preflight(runner, fonts, raster, ocr); err != nil {
		return err
	}
	if err := tools.CheckPairing(raster, ocr); err != nil {
		return err
	}

	service, err := tika.New(cfg.Service)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dcfg := convert.Config{
		Service:       service,
		Fonts:         fonts,
		Rasterizer:    raster,
		OCR:           ocr,
		Policy:        convert.WordCountPolicy{Min: cfg.MinWords},
		SkipConverted: cfg.SkipConverted,
		Logger:        logger,
	}

	if cfg.Ledger != "" {
		store, err := openLedger(ctx, cfg.Ledger, args, cfg.SkipConverted)
		if err != nil {
			return err
		}
		defer store.Close()
		defer func() {
			if err := store.FinishRun(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("closing ledger run failed", "error", err)
			}
		}()
		dcfg.Recorder = store
	}

	driver, err := convert.New(dcfg)
	if err != nil {
		return err
	}

	result, err := driver.ProcessDocuments(ctx, args)
	fmt.Fprintf(cmd.OutOrStdout(), "Converted: %d, OCR: %d, Skipped: %d, Failed: %d\n",
		result.Converted, result.OCR, result.Skipped, result.Failed)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed conversion", result.Failed)
	}
	return nil
}

func openLedger(ctx context.Context, path string, patterns []string, skip bool) (*ledger.Store, error) {
	store, err := ledger.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := store.BeginRun(ctx, patterns, skip); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
