// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tika talks to the long-lived text- and metadata-extraction
// services (Apache Tika). Two transports are supported: a raw TCP socket
// that receives the file bytes and answers with the extraction, and the Tika
// server REST API.
package tika

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/pdiddy/textextract/pkg/types"
)

// Client extracts text and metadata from documents.
type Client interface {
	// ExtractText returns the plain text of the document at path.
	ExtractText(ctx context.Context, path string) (string, error)

	// ExtractMetadata streams the service's metadata for the document at
	// path into w. The format is owned by the service.
	ExtractMetadata(ctx context.Context, path string, w io.Writer) error
}

// New returns the client for cfg.Protocol.
func New(cfg types.ServiceConfig) (Client, error) {
	textAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.TextPort))
	metaAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.MetadataPort))

	switch cfg.Protocol {
	case types.ProtocolSocket, "":
		return NewSocketClient(textAddr, metaAddr), nil
	case types.ProtocolHTTP:
		c := NewHTTPClient("http://"+textAddr, "http://"+metaAddr, nil)
		c.SetRetries(cfg.Retries)
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported service protocol %q: use socket or http", cfg.Protocol)
	}
}

func extractString(ctx context.Context, path string, do func(context.Context, string, io.Writer) error) (string, error) {
	var b strings.Builder
	if err := do(ctx, path, &b); err != nil {
		return b.String(), err
	}
	return b.String(), nil
}
