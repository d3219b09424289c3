package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// envelopeSchema pins the request envelope: unknown top-level fields are rejected.
const envelopeSchema = `{
	"type": "object",
	"properties": {
		"jsonrpc": {"type": "string"},
		"id": {"type": ["number", "string", "null"]},
		"method": {"type": "string"},
		"params": {}
	},
	"required": ["jsonrpc", "method"],
	"additionalProperties": false
}`

var emptyParams = json.RawMessage(`{}`)

// Codec decodes request lines and encodes responses.
type Codec struct {
	schema *gojsonschema.Schema
}

// NewCodec compiles the envelope schema.
func NewCodec() (*Codec, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return &Codec{schema: schema}, nil
}

// DecodeRequest parses one line into a Request. The returned error describes
// why the line is not a valid request envelope.
func (c *Codec) DecodeRequest(line []byte) (Request, error) {
	line = bytes.TrimSpace(line)
	var doc any
	if err := json.Unmarshal(line, &doc); err != nil {
		return Request{}, err
	}
	result, err := c.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Request{}, err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return Request{}, errors.New(strings.Join(msgs, "; "))
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, err
	}
	if len(req.Params) == 0 || bytes.Equal(req.Params, []byte("null")) {
		req.Params = emptyParams
	}
	return req, nil
}

// EncodeResponse renders resp as a single line without the trailing newline.
func EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}
