package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOrderingAndClose(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}
	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 0, v)

	q.Close()
	assert.False(t, q.Push(99))
	for want := 1; want < 5; want++ {
		got, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueuePopWaitsForPush(t *testing.T) {
	q := NewQueue[string]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push("late")
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestServerParseErrorDoesNotStopReader(t *testing.T) {
	srv, err := NewServer(nil)
	require.NoError(t, err)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	srv.Start(inR, outW)

	go func() {
		_, _ = io.WriteString(inW, "not json\n\n   \n")
		_, _ = io.WriteString(inW, `{"jsonrpc":"2.0","id":2,"method":"ping"}`+"\n")
		_ = inW.Close()
	}()

	lines := bufio.NewReader(outR)
	line, err := lines.ReadBytes('\n')
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(line, &msg))
	assert.Nil(t, msg["id"])
	assert.Contains(t, msg, "id")
	errObj := msg["error"].(map[string]any)
	assert.EqualValues(t, CodeParseError, errObj["code"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := srv.Requests().Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ping", req.Method)
	assert.Equal(t, NumberID(2), req.ID)

	select {
	case <-srv.ReaderDone():
	case <-time.After(time.Second):
		t.Fatal("reader did not stop at EOF")
	}
}

func TestServerWritesInOrderAndDrainsOnClose(t *testing.T) {
	srv, err := NewServer(nil)
	require.NoError(t, err)

	inR, _ := io.Pipe()
	outR, outW := io.Pipe()
	srv.Start(inR, outW)

	for i := int64(1); i <= 3; i++ {
		srv.Send(Result(NumberID(i), true))
	}
	srv.Send(Notify("window.closed", map[string]string{"windowId": "w"}))

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- srv.Close(ctx)
	}()

	lines := bufio.NewReader(outR)
	want := []string{
		`{"jsonrpc":"2.0","id":1,"result":true}`,
		`{"jsonrpc":"2.0","id":2,"result":true}`,
		`{"jsonrpc":"2.0","id":3,"result":true}`,
		`{"jsonrpc":"2.0","method":"window.closed","params":{"windowId":"w"}}`,
	}
	for _, w := range want {
		line, err := lines.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, w+"\n", line)
	}
	require.NoError(t, <-done)
}
