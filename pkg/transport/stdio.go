package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/router"
	"github.com/richard-senior/mcp/internal/session"
)

// StdioTransport speaks newline-delimited JSON-RPC frames over stdin/stdout:
// exactly one connection, torn down on EOF. Adapted from the teacher's
// brace-counting stdin reader into a bufio.Scanner, since this core's
// clients always write one frame per line.
type StdioTransport struct {
	in  io.Reader
	out io.Writer
}

// NewStdioTransport builds a transport over the process's stdin/stdout.
func NewStdioTransport() *StdioTransport {
	return &StdioTransport{in: os.Stdin, out: os.Stdout}
}

// Serve runs until stdin hits EOF or ctx is cancelled.
func (t *StdioTransport) Serve(ctx context.Context, manager *session.Manager, rt *router.Router) error {
	writer := bufio.NewWriter(t.out)
	var writeMu sync.Mutex
	send := func(frame []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := writer.Write(frame); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		return writer.Flush()
	}

	conn := manager.Accept(send)
	defer manager.Close(conn.ID)

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame := append([]byte(nil), line...)
		resp := rt.HandleFrame(ctx, conn.ID, frame)
		if resp != nil {
			if err := send(resp); err != nil {
				logger.Error("stdio: failed to write response", err)
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("stdio: read error", err)
		return err
	}
	return nil
}
