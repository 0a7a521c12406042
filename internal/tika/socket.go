// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tika

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// SocketClient writes a document's raw bytes to a TCP port, half-closes the
// connection and reads the reply until the server closes its side.
type SocketClient struct {
	textAddr string
	metaAddr string
	dialer   net.Dialer
}

// NewSocketClient creates a client for the given host:port addresses.
func NewSocketClient(textAddr, metaAddr string) *SocketClient {
	return &SocketClient{textAddr: textAddr, metaAddr: metaAddr}
}

func (c *SocketClient) ExtractText(ctx context.Context, path string) (string, error) {
	return extractString(ctx, path, func(ctx context.Context, path string, w io.Writer) error {
		return c.exchange(ctx, c.textAddr, path, w)
	})
}

func (c *SocketClient) ExtractMetadata(ctx context.Context, path string, w io.Writer) error {
	return c.exchange(ctx, c.metaAddr, path, w)
}

func (c *SocketClient) exchange(ctx context.Context, addr, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	// Unblock reads and writes when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := io.Copy(conn, f); err != nil {
		return c.wrap(ctx, addr, path, "sending", err)
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return c.wrap(ctx, addr, path, "closing write side for", err)
		}
	}
	if _, err := io.Copy(w, conn); err != nil {
		return c.wrap(ctx, addr, path, "reading reply for", err)
	}
	return nil
}

func (c *SocketClient) wrap(ctx context.Context, addr, path, verb string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return fmt.Errorf("%s %s to %s: %w", verb, path, addr, err)
}
