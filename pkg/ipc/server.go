package ipc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Server bridges a line-oriented byte stream pair to two unbounded queues.
// The reader goroutine decodes requests into Requests(); the writer goroutine
// is the only code that touches the output stream.
type Server struct {
	codec    *Codec
	logger   *slog.Logger
	inbound  *Queue[Request]
	outbound *Queue[Response]

	startOnce  sync.Once
	readerDone chan struct{}
	writerDone chan struct{}
}

// NewServer constructs a stdio server. A nil logger falls back to slog.Default.
func NewServer(logger *slog.Logger) (*Server, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		codec:      codec,
		logger:     logger.With("component", "ipc"),
		inbound:    NewQueue[Request](),
		outbound:   NewQueue[Response](),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}, nil
}

// Start launches the reader and writer goroutines. Calling it twice is a no-op.
func (s *Server) Start(r io.Reader, w io.Writer) {
	s.startOnce.Do(func() {
		go s.readLoop(r)
		go s.writeLoop(w)
	})
}

// Requests exposes the inbound queue for the dispatcher.
func (s *Server) Requests() *Queue[Request] {
	return s.inbound
}

// Send enqueues resp for the writer without blocking.
func (s *Server) Send(resp Response) {
	if !s.outbound.Push(resp) {
		s.logger.Debug("dropping response after shutdown", "method", resp.Method, "id", resp.ID.String())
	}
}

// ReaderDone is closed when the input stream ends.
func (s *Server) ReaderDone() <-chan struct{} {
	return s.readerDone
}

// Close stops accepting responses and waits for the writer to flush what is
// already queued, or for ctx to expire.
func (s *Server) Close(ctx context.Context) error {
	s.outbound.Close()
	select {
	case <-s.writerDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) readLoop(r io.Reader) {
	defer close(s.readerDone)
	br := bufio.NewReader(r)
	for {
		line, err := readFrame(br)
		if !isBlank(line) {
			s.handleLine(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("input stream closed")
			} else {
				s.logger.Warn("input stream failed", "error", err)
			}
			return
		}
	}
}

func (s *Server) handleLine(line []byte) {
	req, err := s.codec.DecodeRequest(line)
	if err != nil {
		s.logger.Debug("rejecting malformed line", "error", err)
		s.Send(Failure(NullID(), Errorf(CodeParseError, "Parse error: "+err.Error(), nil)))
		return
	}
	s.inbound.Push(req)
}

func (s *Server) writeLoop(w io.Writer) {
	defer close(s.writerDone)
	bw := bufio.NewWriter(w)
	broken := false
	for {
		resp, err := s.outbound.Pop(context.Background())
		if err != nil {
			return
		}
		if broken {
			continue
		}
		payload, err := EncodeResponse(resp)
		if err != nil {
			s.logger.Error("encode response failed", "error", err, "id", resp.ID.String())
			if resp.IsNotification() {
				continue
			}
			payload, err = EncodeResponse(Failure(resp.ID, Errorf(CodeOperationFailed, "encode result: "+err.Error(), nil)))
			if err != nil {
				continue
			}
		}
		if err := writeFrame(bw, payload); err != nil {
			// Keep draining so producers never pile up behind a dead peer.
			s.logger.Warn("output stream failed", "error", err)
			broken = true
		}
	}
}
