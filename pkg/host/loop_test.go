package host

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/native"
)

type session struct {
	t      *testing.T
	tk     *native.Headless
	host   *Host
	server *ipc.Server
	in     *io.PipeWriter
	lines  chan string
	done   chan error
}

func startSession(t *testing.T) *session {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := ipc.NewServer(logger)
	require.NoError(t, err)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	server.Start(inR, outW)

	tk := native.NewHeadless(native.HeadlessConfig{PollInterval: time.Millisecond})
	h, err := New(Options{
		Toolkit: tk,
		System:  &fakeSystem{},
		Inbox:   server.Requests(),
		Outbox:  server,
		Logger:  logger,
	})
	require.NoError(t, err)

	s := &session{t: t, tk: tk, host: h, server: server, in: inW, lines: make(chan string, 64), done: make(chan error, 1)}
	go func() {
		sc := bufio.NewScanner(outR)
		for sc.Scan() {
			s.lines <- sc.Text()
		}
		close(s.lines)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	go func() { s.done <- h.Run(ctx) }()
	t.Cleanup(func() {
		_ = inW.Close()
		_ = outW.Close()
	})
	return s
}

func (s *session) send(line string) {
	s.t.Helper()
	_, err := fmt.Fprintln(s.in, line)
	require.NoError(s.t, err)
}

func (s *session) next() map[string]any {
	s.t.Helper()
	select {
	case line, ok := <-s.lines:
		require.True(s.t, ok, "output closed")
		var msg map[string]any
		require.NoError(s.t, json.Unmarshal([]byte(line), &msg), line)
		return msg
	case <-time.After(5 * time.Second):
		s.t.Fatal("timed out waiting for output")
		return nil
	}
}

func (s *session) wait() error {
	s.t.Helper()
	select {
	case err := <-s.done:
		return err
	case <-time.After(5 * time.Second):
		s.t.Fatal("host did not stop")
		return nil
	}
}

func TestSessionCreateShowClose(t *testing.T) {
	s := startSession(t)

	s.send(`{"jsonrpc":"2.0","id":1,"method":"createWindow","params":{"title":"Hello","html":"<p>hi</p>"}}`)
	created := s.next()
	assert.Equal(t, "2.0", created["jsonrpc"])
	assert.Equal(t, float64(1), created["id"])
	result := created["result"].(map[string]any)
	windowID, _ := result["windowId"].(string)
	require.Len(t, windowID, 26)

	s.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":2,"method":"window.show","params":{"windowId":%q}}`, windowID))
	assert.Equal(t, map[string]any{"jsonrpc": "2.0", "id": float64(2), "result": true}, s.next())

	s.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":"three","method":"window.close","params":{"windowId":%q}}`, windowID))
	assert.Equal(t, map[string]any{"jsonrpc": "2.0", "id": "three", "result": true}, s.next())
	assert.Equal(t, map[string]any{
		"jsonrpc": "2.0",
		"method":  "window.closed",
		"params":  map[string]any{"windowId": windowID},
	}, s.next())

	require.NoError(t, s.wait())
	assert.Equal(t, 0, s.tk.Live())
}

func TestSessionErrorsKeepTheHostRunning(t *testing.T) {
	s := startSession(t)

	s.send(`this is not json`)
	parse := s.next()
	assert.Nil(t, parse["id"])
	assert.Equal(t, float64(ipc.CodeParseError), parse["error"].(map[string]any)["code"])

	s.send(`{"jsonrpc":"2.0","id":7,"method":"window.fly","params":{}}`)
	unknown := s.next()
	assert.Equal(t, float64(7), unknown["id"])
	assert.Equal(t, float64(ipc.CodeMethodNotFound), unknown["error"].(map[string]any)["code"])

	s.send(`{"jsonrpc":"2.0","id":8,"method":"window.show","params":{"windowId":"missing"}}`)
	missing := s.next()
	assert.Equal(t, float64(ipc.CodeWindowNotFound), missing["error"].(map[string]any)["code"])

	s.send(`{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	assert.Equal(t, "pong", s.next()["result"])
}

func TestSessionNativeCloseAndPageMessages(t *testing.T) {
	s := startSession(t)

	s.send(`{"jsonrpc":"2.0","id":1,"method":"createWindow","params":{}}`)
	first := s.next()["result"].(map[string]any)["windowId"].(string)
	s.send(`{"jsonrpc":"2.0","id":2,"method":"createWindow","params":{}}`)
	second := s.next()["result"].(map[string]any)["windowId"].(string)

	firstEntry := s.handleOf(first)
	secondEntry := s.handleOf(second)

	s.tk.DeliverIPC(firstEntry, `{"hello":"host"}`)
	assert.Equal(t, map[string]any{
		"jsonrpc": "2.0",
		"method":  "webview.ipc",
		"params":  map[string]any{"windowId": first, "message": `{"hello":"host"}`},
	}, s.next())

	s.tk.RequestClose(firstEntry)
	closed := s.next()
	assert.Equal(t, "window.closed", closed["method"])
	assert.Equal(t, first, closed["params"].(map[string]any)["windowId"])

	s.tk.RequestClose(secondEntry)
	closed = s.next()
	assert.Equal(t, second, closed["params"].(map[string]any)["windowId"])

	require.NoError(t, s.wait())
}

// handleOf reads the registry from the test goroutine; it is only called
// while no request is in flight.
func (s *session) handleOf(id string) native.Handle {
	s.t.Helper()
	for _, h := range []native.Handle{1, 2, 3, 4} {
		if st, ok := s.tk.State(h); ok && !st.Destroyed {
			if resolved, found := s.host.registry.Resolve(h); found && string(resolved) == id {
				return h
			}
		}
	}
	s.t.Fatalf("no native handle for %s", id)
	return 0
}
