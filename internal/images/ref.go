package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind tags which variant a Ref holds.
type Kind int

const (
	KindRemote Kind = iota + 1
	KindInline
)

// Ref is an image reference: either a remote URI or inline bytes with a media type.
type Ref struct {
	kind      Kind
	uri       string
	data      []byte
	mediaType string
}

// Remote returns a reference to an image served at uri
func Remote(uri string) Ref {
	return Ref{kind: KindRemote, uri: uri}
}

// Inline returns a self-contained reference holding the image bytes.
func Inline(data []byte, mediaType string) Ref {
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return Ref{kind: KindInline, data: bytes.Clone(data), mediaType: mediaType}
}

// ParseRef parses the string form of a reference. Data URIs become inline
// references; everything else is treated as a remote URI.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("empty image reference")
	}

	if !strings.HasPrefix(s, "data:") {
		return Remote(s), nil
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return Ref{}, fmt.Errorf("malformed data URI: missing payload separator")
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return Ref{}, fmt.Errorf("unsupported data URI encoding: only base64 is accepted")
	}
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Ref{}, fmt.Errorf("failed to decode data URI payload: %w", err)
	}

	return Inline(data, mediaType), nil
}

func (r Ref) Kind() Kind { return r.kind }

func (r Ref) IsZero() bool { return r.kind == 0 }

// URI returns the remote location; empty for inline references.
func (r Ref) URI() string { return r.uri }

// Data returns the inline bytes; nil for remote references.
func (r Ref) Data() []byte { return r.data }

func (r Ref) MediaType() string { return r.mediaType }

// String renders the reference the way browsers consume it: the URI itself,
// or a base64 data URI.
func (r Ref) String() string {
	switch r.kind {
	case KindRemote:
		return r.uri
	case KindInline:
		return "data:" + r.mediaType + ";base64," + base64.StdEncoding.EncodeToString(r.data)
	default:
		return ""
	}
}

// Equal reports whether both references point at the same image.
func (r Ref) Equal(other Ref) bool {
	if r.kind != other.kind {
		return false
	}
	if r.kind == KindRemote {
		return r.uri == other.uri
	}
	return r.mediaType == other.mediaType && bytes.Equal(r.data, other.data)
}

func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
