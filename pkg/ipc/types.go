package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the only protocol version emitted on the wire.
const Version = "2.0"

// Error codes shared by the dispatcher and handlers.
const (
	CodeParseError          = -32700
	CodeMethodNotFound      = -32601
	CodeInvalidParams       = -32602
	CodeWindowNotFound      = -32001
	CodeScriptFailed        = -32002
	CodeIconFailed          = -32003
	CodePositionUnavailable = -32004
	CodeCreateFailed        = -32005
	CodeCaptureFailed       = -32006
	CodeOperationFailed     = -32099
	CodeShellFailed         = -33001
	CodeClipboardWrite      = -33002
	CodeClipboardRead       = -33003
	CodeDialogFailed        = -33004
)

type idKind uint8

const (
	idNull idKind = iota
	idNumber
	idString
)

// ID is the request correlation token: a number, a string or null.
// The zero value is null.
type ID struct {
	kind idKind
	num  json.Number
	str  string
}

// NullID returns the null id.
func NullID() ID { return ID{} }

// NumberID builds a numeric id.
func NumberID(n int64) ID {
	return ID{kind: idNumber, num: json.Number(strconv.FormatInt(n, 10))}
}

// StringID builds a string id.
func StringID(s string) ID { return ID{kind: idString, str: s} }

// IsNull reports whether the id is null or was absent.
func (id ID) IsNull() bool { return id.kind == idNull }

// String renders the id for logs.
func (id ID) String() string {
	switch id.kind {
	case idNumber:
		return id.num.String()
	case idString:
		return strconv.Quote(id.str)
	default:
		return "null"
	}
}

// MarshalJSON emits the id exactly as it was received.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idNumber:
		return []byte(id.num), nil
	case idString:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n, ok := v.(json.Number)
	if !ok {
		return fmt.Errorf("id must be a number, string or null")
	}
	*id = ID{kind: idNumber, num: n}
	return nil
}

// Request models one inbound JSON-RPC call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error is the structured failure carried by error responses.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Errorf helps build protocol errors.
func Errorf(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

type responseKind uint8

const (
	kindResult responseKind = iota
	kindError
	kindNotify
)

// Response is an outbound message: a result, an error or a notification.
type Response struct {
	kind   responseKind
	ID     ID
	Result any
	Error  *Error
	Method string
	Params any
}

// Result builds a successful reply to id.
func Result(id ID, value any) Response {
	return Response{kind: kindResult, ID: id, Result: value}
}

// Failure builds an error reply to id.
func Failure(id ID, err *Error) Response {
	return Response{kind: kindError, ID: id, Error: err}
}

// Notify builds a notification; it carries no id and answers no request.
func Notify(method string, params any) Response {
	if params == nil {
		params = map[string]any{}
	}
	return Response{kind: kindNotify, Method: method, Params: params}
}

// IsNotification reports whether r is a notification.
func (r Response) IsNotification() bool { return r.kind == kindNotify }

// IsError reports whether r is an error reply.
func (r Response) IsError() bool { return r.kind == kindError }

// MarshalJSON renders the wire shape for the response kind.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case kindNotify:
		return json.Marshal(struct {
			JSONRPC string `json:"jsonrpc"`
			Method  string `json:"method"`
			Params  any    `json:"params"`
		}{Version, r.Method, r.Params})
	case kindError:
		return json.Marshal(struct {
			JSONRPC string `json:"jsonrpc"`
			ID      ID     `json:"id"`
			Error   *Error `json:"error"`
		}{Version, r.ID, r.Error})
	default:
		return json.Marshal(struct {
			JSONRPC string `json:"jsonrpc"`
			ID      ID     `json:"id"`
			Result  any    `json:"result"`
		}{Version, r.ID, r.Result})
	}
}
