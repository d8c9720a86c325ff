package webdriver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Response is a decoded WebDriver response. Value holds the raw "value"
// field and is nil when the field was absent.
type Response struct {
	StatusCode int
	Value      json.RawMessage
}

// HasValue reports whether the response carried a "value" field at all.
func (r *Response) HasValue() bool {
	return r != nil && r.Value != nil
}

// DecodeResponse parses a successful exchange. The body must be a JSON
// object; a "value" holding a WebDriver error object is returned as a
// ProtocolError even under a 2xx status.
func DecodeResponse(raw *RawResponse) (*Response, error) {
	if raw == nil {
		return nil, &DecodeError{Expected: "response object", Actual: "nothing"}
	}
	if kind := jsonKind(raw.Body); kind != "object" {
		return nil, &DecodeError{Expected: "response object", Actual: kind, Raw: raw.Body}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw.Body, &envelope); err != nil {
		return nil, &DecodeError{Expected: "response object", Actual: "invalid JSON", Raw: raw.Body, Err: err}
	}

	resp := &Response{StatusCode: raw.StatusCode}
	if v, ok := envelope["value"]; ok {
		resp.Value = v
		if perr := parseErrorValue(raw.StatusCode, v); perr != nil {
			return nil, perr
		}
	}
	return resp, nil
}

// DecodeValue converts the response's "value" into T. A missing or null value
// is an error, as is any JSON type T cannot hold; zero values are never
// substituted.
func DecodeValue[T any](resp *Response) (T, error) {
	var out T
	expected := typeName(reflect.TypeOf(out))

	if !resp.HasValue() {
		return out, &DecodeError{Expected: expected, Actual: "missing value"}
	}
	kind := jsonKind(resp.Value)
	if kind == "null" {
		return out, &DecodeError{Expected: expected, Actual: "null", Raw: resp.Value}
	}

	if err := json.Unmarshal(resp.Value, &out); err != nil {
		return out, &DecodeError{Expected: expected, Actual: kind, Raw: resp.Value, Err: err}
	}
	return out, nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "any"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return fmt.Sprintf("object (%s)", t)
	}
	return t.String()
}

// jsonKind names the JSON type of a value from its first significant byte.
func jsonKind(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "empty"
	}
	switch data[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
