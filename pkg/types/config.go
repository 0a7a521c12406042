// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Default ports of the two long-lived extraction services.
const (
	DefaultTextPort     = 9998
	DefaultMetadataPort = 8887
	DefaultServiceHost  = "localhost"
)

// ServiceProtocol selects how the extraction services are reached.
type ServiceProtocol string

const (
	// ProtocolSocket writes raw file bytes to a TCP port and reads the
	// response until the server closes the connection.
	ProtocolSocket ServiceProtocol = "socket"
	// ProtocolHTTP uses the Tika server REST endpoints (/tika and /meta).
	ProtocolHTTP ServiceProtocol = "http"
)

// ServiceConfig addresses the text- and metadata-extraction services.
type ServiceConfig struct {
	// Host is the service host (default "localhost").
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// TextPort is the port of the text-extraction service (default 9998).
	TextPort int `json:"text_port" yaml:"text_port" mapstructure:"text_port"`

	// MetadataPort is the port of the metadata-extraction service (default 8887).
	MetadataPort int `json:"metadata_port" yaml:"metadata_port" mapstructure:"metadata_port"`

	// Protocol is socket or http.
	Protocol ServiceProtocol `json:"protocol" yaml:"protocol" mapstructure:"protocol"`

	// Retries is how often the http protocol retries a busy (429, 503)
	// answer. Zero sends each request once; the socket protocol never retries.
	Retries int `json:"retries" yaml:"retries" mapstructure:"retries"`
}

// ToolConfig names the backend and binary for each external tool.
type ToolConfig struct {
	// FontInspector is "pdffonts" or "pdfcpu".
	FontInspector string `json:"font_inspector" yaml:"font_inspector" mapstructure:"font_inspector"`

	// Rasterizer is "ghostscript" or "fitz".
	Rasterizer string `json:"rasterizer" yaml:"rasterizer" mapstructure:"rasterizer"`

	// OCR is "tesseract" or, in builds tagged gosseract, "gosseract".
	OCR string `json:"ocr" yaml:"ocr" mapstructure:"ocr"`

	// PdffontsBin, GhostscriptBin and TesseractBin override binary names.
	PdffontsBin    string `json:"pdffonts_bin" yaml:"pdffonts_bin" mapstructure:"pdffonts_bin"`
	GhostscriptBin string `json:"ghostscript_bin" yaml:"ghostscript_bin" mapstructure:"ghostscript_bin"`
	TesseractBin   string `json:"tesseract_bin" yaml:"tesseract_bin" mapstructure:"tesseract_bin"`

	// OCRLanguages is passed to the OCR engine (e.g. ["eng"]). Empty uses the engine default.
	OCRLanguages []string `json:"ocr_languages" yaml:"ocr_languages" mapstructure:"ocr_languages"`

	// Timeout bounds each external tool invocation. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ConversionConfig holds settings for a batch conversion run.
type ConversionConfig struct {
	Service ServiceConfig `json:"service" yaml:"service" mapstructure:"service"`
	Tools   ToolConfig    `json:"tools" yaml:"tools" mapstructure:"tools"`

	// SkipConverted skips text extraction for documents that already have a
	// sibling .txt file.
	SkipConverted bool `json:"skip_converted" yaml:"skip_converted" mapstructure:"skip_converted"`

	// MinWords is the word count a direct extraction must exceed to count as
	// successful (default 10). Zero keeps any text with at least one word.
	MinWords int `json:"min_words" yaml:"min_words" mapstructure:"min_words"`

	// Ledger is the path of the SQLite run history. Empty disables it.
	Ledger string `json:"ledger,omitempty" yaml:"ledger,omitempty" mapstructure:"ledger"`
}

// Defaults fills zero-valued fields with the documented defaults.
func (c *ConversionConfig) Defaults() {
	if c.Service.Host == "" {
		c.Service.Host = DefaultServiceHost
	}
	if c.Service.TextPort == 0 {
		c.Service.TextPort = DefaultTextPort
	}
	if c.Service.MetadataPort == 0 {
		c.Service.MetadataPort = DefaultMetadataPort
	}
	if c.Service.Protocol == "" {
		c.Service.Protocol = ProtocolSocket
	}
	if c.Tools.FontInspector == "" {
		c.Tools.FontInspector = "pdffonts"
	}
	if c.Tools.Rasterizer == "" {
		c.Tools.Rasterizer = "ghostscript"
	}
	if c.Tools.OCR == "" {
		c.Tools.OCR = "tesseract"
	}
	if c.MinWords < 0 {
		c.MinWords = 10
	}
}
