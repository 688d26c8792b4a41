package toolexecutor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/harun/apigate/pkg/toolerr"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var prettyOptions = &pretty.Options{Indent: "  "}

// Envelope is the single response of a tool call: either
// {"success":true,...payload} or {"success":false,"error":msg}.
type Envelope struct {
	Success bool
	// Kind is empty on success.
	Kind toolerr.Kind
	Err  error
	body []byte
}

// SuccessEnvelope merges payload into a success envelope. Payload keys keep
// their encoding order; non-object payloads are nested under "result".
func SuccessEnvelope(payload interface{}) Envelope {
	body, err := encodeSuccess(payload)
	if err != nil {
		return FailureEnvelope(toolerr.Wrap(toolerr.KindInternal, "Failed to encode tool result: "+err.Error(), err))
	}
	return Envelope{Success: true, body: body}
}

// FailureEnvelope builds a failure envelope from err.
func FailureEnvelope(err error) Envelope {
	if err == nil {
		err = toolerr.Internalf("unknown failure")
	}
	body, setErr := sjson.SetBytes([]byte(`{"success":false}`), "error", err.Error())
	if setErr != nil {
		body = []byte(`{"success":false,"error":"unencodable error"}`)
	}
	return Envelope{
		Success: false,
		Kind:    toolerr.KindOf(err),
		Err:     err,
		body:    bytes.TrimSpace(pretty.PrettyOptions(body, prettyOptions)),
	}
}

// IsError reports whether the envelope is a failure.
func (e Envelope) IsError() bool {
	return !e.Success
}

// JSON returns the encoded envelope.
func (e Envelope) JSON() []byte {
	return e.body
}

// Text returns the encoded envelope as a string.
func (e Envelope) Text() string {
	return string(e.body)
}

// Message returns the failure message, or "" on success.
func (e Envelope) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func encodeSuccess(payload interface{}) ([]byte, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		raw, err = sjson.SetRawBytes([]byte(`{}`), "result", raw)
		if err != nil {
			return nil, err
		}
	}

	if gjson.GetBytes(raw, "success").Exists() {
		raw, err = sjson.DeleteBytes(raw, "success")
		if err != nil {
			return nil, err
		}
	}

	inner := bytes.TrimSpace(raw)
	inner = bytes.TrimSpace(inner[1 : len(inner)-1])

	body := make([]byte, 0, len(inner)+20)
	body = append(body, `{"success":true`...)
	if len(inner) > 0 {
		body = append(body, ',')
		body = append(body, inner...)
	}
	body = append(body, '}')

	return bytes.TrimSpace(pretty.PrettyOptions(body, prettyOptions)), nil
}

func encodePayload(payload interface{}) ([]byte, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return []byte(`{}`), nil
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(p); err != nil {
			return nil, err
		}
		raw = buf.Bytes()
	}

	raw = bytes.TrimSpace(raw)
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return raw, nil
}
