// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the textextract pipeline:
// documents, per-document outcomes and run configuration.
package types

import (
	"os"
	"path/filepath"
	"strings"
)

// Output suffixes that replace a document's extension.
const (
	TextSuffix     = ".txt"
	ImageSuffix    = ".tiff"
	MetadataSuffix = "_metadata_.json"
)

// Outcome is the result of running one document through the pipeline.
type Outcome string

const (
	// OutcomeConverted means the directly extracted text was saved.
	OutcomeConverted Outcome = "converted"
	// OutcomeOCR means the document was rasterized and sent through OCR.
	OutcomeOCR Outcome = "ocr"
	// OutcomeSkipped means a .txt output already existed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the document could not be converted.
	OutcomeFailed Outcome = "failed"
)

// Document is a file on disk identified by path and extension.
type Document struct {
	// Path is the source file path as matched by the pattern.
	Path string `json:"path" yaml:"path"`

	// Extension is the lower-cased final extension including the dot (".pdf").
	Extension string `json:"extension" yaml:"extension"`
}

// NewDocument builds a Document from a file path.
func NewDocument(path string) Document {
	return Document{
		Path:      path,
		Extension: strings.ToLower(filepath.Ext(path)),
	}
}

// IsPDF reports whether the document is a PDF, regardless of extension case.
func (d Document) IsPDF() bool {
	return d.Extension == ".pdf"
}

// base returns the path with only its final extension removed.
func (d Document) base() string {
	return strings.TrimSuffix(d.Path, filepath.Ext(d.Path))
}

// BasePath is the extension-less path used as the OCR output base.
func (d Document) BasePath() string { return d.base() }

// TextPath is the sibling .txt output.
func (d Document) TextPath() string { return d.base() + TextSuffix }

// ImagePath is the sibling .tiff intermediate image.
func (d Document) ImagePath() string { return d.base() + ImageSuffix }

// MetadataPath is the sibling _metadata_.json output.
func (d Document) MetadataPath() string { return d.base() + MetadataSuffix }

// HasText reports whether the .txt output exists. This alone decides whether
// a document counts as already converted.
func (d Document) HasText() bool {
	_, err := os.Stat(d.TextPath())
	return err == nil
}

// HasMetadata reports whether the metadata output exists.
func (d Document) HasMetadata() bool {
	_, err := os.Stat(d.MetadataPath())
	return err == nil
}

// Report describes what happened to one document in a batch run.
type Report struct {
	Path    string  `json:"path" yaml:"path"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// TextBearing records the text-layer probe result. Always true for
	// non-PDF documents; false for skipped documents, which are not probed.
	TextBearing bool `json:"text_bearing" yaml:"text_bearing"`

	// Words is the word count of the directly extracted text.
	Words int `json:"words" yaml:"words"`

	// Error is set when Outcome is OutcomeFailed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
