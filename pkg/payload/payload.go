// Package payload extracts the data value exposed by a request controller
// from a raw HTTP response body.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type selects how a body is decoded.
type Type string

const (
	TypeAuto  Type = "auto"
	TypeJSON  Type = "json"
	TypeYAML  Type = "yaml"
	TypeHTML  Type = "html"
	TypeText  Type = "text"
	TypeBytes Type = "bytes"
)

// ParseType normalizes a configured response type. Empty means TypeAuto.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TypeAuto, nil
	case TypeAuto, TypeJSON, TypeYAML, TypeHTML, TypeText, TypeBytes:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported response type %q", raw)
	}
}

// Decode converts body into a data value.
//
// In auto mode the Content-Type header picks the decoder. JSON that fails to
// parse is returned as a string rather than an error, so a mislabelled body
// never turns a successful response into a failure.
func Decode(typ Type, contentType string, body []byte) (any, error) {
	switch typ {
	case TypeJSON:
		return decodeJSON(body)
	case TypeYAML:
		return decodeYAML(body)
	case TypeHTML:
		return ParsePageMeta(body)
	case TypeText:
		return string(body), nil
	case TypeBytes:
		return body, nil
	case TypeAuto, "":
		return decodeAuto(contentType, body), nil
	default:
		return nil, fmt.Errorf("unsupported response type %q", typ)
	}
}

func decodeAuto(contentType string, body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return string(body)
	}

	media, _, _ := mime.ParseMediaType(contentType)
	switch {
	case media == "text/html" || media == "application/xhtml+xml":
		if meta, err := ParsePageMeta(body); err == nil {
			return meta
		}
	case isYAML(media):
		if v, err := decodeYAML(body); err == nil {
			return v
		}
	case isBinary(media):
		return body
	}

	// json is attempted for every remaining media type, including text/plain
	if v, err := decodeJSON(body); err == nil {
		return v
	}
	return string(body)
}

func decodeJSON(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode json payload: %w", err)
	}
	return v, nil
}

func decodeYAML(body []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode yaml payload: %w", err)
	}
	return v, nil
}

func isYAML(media string) bool {
	switch media {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

func isBinary(media string) bool {
	if media == "application/octet-stream" || media == "application/pdf" {
		return true
	}
	return strings.HasPrefix(media, "image/") ||
		strings.HasPrefix(media, "audio/") ||
		strings.HasPrefix(media, "video/")
}
