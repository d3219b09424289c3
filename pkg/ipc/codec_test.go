package ipc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	t.Run("numeric id and params", func(t *testing.T) {
		req, err := codec.DecodeRequest([]byte(`{"jsonrpc":"2.0","id":7,"method":"window.show","params":{"windowId":"w"}}`))
		require.NoError(t, err)
		assert.Equal(t, "window.show", req.Method)
		assert.Equal(t, NumberID(7), req.ID)
		assert.JSONEq(t, `{"windowId":"w"}`, string(req.Params))
	})

	t.Run("missing id and params", func(t *testing.T) {
		req, err := codec.DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"clipboard.readText"}`))
		require.NoError(t, err)
		assert.True(t, req.ID.IsNull())
		assert.JSONEq(t, `{}`, string(req.Params))
	})

	t.Run("string id kept", func(t *testing.T) {
		req, err := codec.DecodeRequest([]byte(`{"jsonrpc":"2.0","id":"abc","method":"ping"}`))
		require.NoError(t, err)
		assert.Equal(t, StringID("abc"), req.ID)
	})

	t.Run("null params become empty object", func(t *testing.T) {
		req, err := codec.DecodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping","params":null}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(req.Params))
	})

	rejected := map[string]string{
		"syntax":          `{"jsonrpc":"2.0",`,
		"unknown field":   `{"jsonrpc":"2.0","id":1,"method":"ping","extra":true}`,
		"missing method":  `{"jsonrpc":"2.0","id":1}`,
		"missing jsonrpc": `{"id":1,"method":"ping"}`,
		"bool id":         `{"jsonrpc":"2.0","id":true,"method":"ping"}`,
		"not an object":   `[1,2,3]`,
	}
	for name, line := range rejected {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := codec.DecodeRequest([]byte(line))
			require.Error(t, err)
		})
	}
}

func TestIDRoundTripKeepsNumberText(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`12345678901234567890`), &id))
	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `12345678901234567890`, string(out))
}

func TestResponseShapes(t *testing.T) {
	out, err := EncodeResponse(Result(NumberID(1), map[string]string{"windowId": "abc"}))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"windowId":"abc"}}`, string(out))

	out, err = EncodeResponse(Result(StringID("x"), nil))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":"x","result":null}`, string(out))

	out, err = EncodeResponse(Failure(NullID(), Errorf(CodeParseError, "Parse error: boom", nil)))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error: boom"}}`, string(out))

	out, err = EncodeResponse(Notify("window.closed", map[string]string{"windowId": "abc"}))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"window.closed","params":{"windowId":"abc"}}`, string(out))
}
