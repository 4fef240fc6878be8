package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

const maxMessageBytes = 8 << 20

type stdioLine struct {
	data    []byte
	tooLong bool
}

// readLine returns the next newline-terminated line without its terminator. A line longer than
// maxMessageBytes is consumed up to its newline and reported as tooLong with no data.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		chunk, err = r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxMessageBytes+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, err
	}
}

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes replies to out.
// Requests are handled concurrently; replies may be written out of order. It returns when in
// reaches EOF or ctx is cancelled, after in-flight requests have finished.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan stdioLine)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		r := bufio.NewReaderSize(in, 64*1024)
		for {
			data, tooLong, err := readLine(r)
			if tooLong || len(data) > 0 {
				select {
				case lines <- stdioLine{data: data, tooLong: tooLong}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
	)
	write := func(resp *Response) {
		b, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("encode response")
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := out.Write(append(b, '\n')); err != nil {
			log.Error().Err(err).Msg("write response")
		}
	}

	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stdio transport stopping")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("read stdin: %w", err)
				default:
				}
				log.Info().Msg("stdin closed")
				return nil
			}
			if line.tooLong {
				log.Warn().Int("limit", maxMessageBytes).Msg("dropping oversized message")
				write(errorResponse(nil, CodeInvalidRequest, fmt.Sprintf("message exceeds %d bytes", maxMessageBytes)))
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if resp := s.Handle(ctx, line.data); resp != nil {
					write(resp)
				}
			}()
		}
	}
}
