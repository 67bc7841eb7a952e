// Package transport carries command invocations over a line-delimited JSON stream, such as a child process's stdio.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/cchalm/workspace-fs/internal/commands"
	"github.com/cchalm/workspace-fs/internal/filesystem"
	"github.com/cchalm/workspace-fs/internal/telemetry"
)

// maxLineSize bounds a single request, which may carry a whole file's content
var maxLineSize = 64 << 20

// Invoker runs a named command
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) commands.Response
}

// Request is one line of input
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response is one line of output, echoing the request's ID
type Response struct {
	ID string `json:"id"`
	commands.Response
}

// Serve reads requests from r until EOF or until ctx is cancelled, and writes one response per request to w. Requests
// run concurrently, so responses may be written out of order; callers match them up by ID. A line longer than
// maxLineSize is answered with an invalid_argument response and skipped. Serve waits for in-flight requests before
// returning, but does not wait for a read from r that is blocked when ctx is cancelled
func Serve(ctx context.Context, r io.Reader, w io.Writer, invoker Invoker, logger *zap.Logger) error {
	var (
		wg       sync.WaitGroup
		writeMu  sync.Mutex
		writeErr error
	)
	encoder := json.NewEncoder(w)
	write := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if writeErr != nil {
			return
		}
		if err := encoder.Encode(resp); err != nil {
			writeErr = fmt.Errorf("failed to write response: %w", err)
		}
	}
	reject := func(err error) {
		logger.Warn("malformed request", zap.Error(err))
		write(Response{Response: commands.Response{
			Error: fmt.Sprintf("malformed request: %s", err),
			Kind:  filesystem.KindInvalidArgument.String(),
		}})
	}

	lines := make(chan line)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	go func() {
		readErr <- readLines(r, lines, stop)
		close(lines)
	}()

loop:
	for ctx.Err() == nil {
		var l line
		select {
		case <-ctx.Done():
			break loop
		case next, ok := <-lines:
			if !ok {
				break loop
			}
			l = next
		}

		if l.tooLong {
			reject(fmt.Errorf("request exceeds %d bytes", maxLineSize))
			continue
		}
		if len(l.data) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(l.data, &req); err != nil {
			reject(err)
			continue
		}
		if req.ID == "" {
			req.ID = telemetry.NewInvocationID()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := invoker.Invoke(ctx, req.Command, req.Args)
			write(Response{ID: req.ID, Response: resp})
		}()
	}
	close(stop)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := <-readErr; err != nil {
		return fmt.Errorf("failed to read requests: %w", err)
	}
	return writeErr
}

// line is one newline-terminated chunk of input with its terminator stripped. Lines over the size limit carry no data
type line struct {
	data    []byte
	tooLong bool
}

// readLines sends each line of r on lines until EOF, a read error, or stop being closed
func readLines(r io.Reader, lines chan<- line, stop <-chan struct{}) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		l, err := readLine(br)
		if len(l.data) > 0 || l.tooLong {
			select {
			case lines <- l:
			case <-stop:
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine reads through the next newline. Once the line outgrows maxLineSize its bytes are discarded rather than
// buffered, so an oversized request costs no more memory than a maximal one
func readLine(br *bufio.Reader) (line, error) {
	var l line
	for {
		chunk, err := br.ReadSlice('\n')
		if !l.tooLong {
			l.data = append(l.data, chunk...)
			if len(bytes.TrimRight(l.data, "\r\n")) > maxLineSize {
				l.data = nil
				l.tooLong = true
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		l.data = bytes.TrimRight(l.data, "\r\n")
		return l, err
	}
}
