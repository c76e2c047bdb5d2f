// Package media turns the base64 image/audio fields of an ask request into raw parts
// the LLM providers can attach inline.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/gabriel-vasile/mimetype"
)

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

var (
	ErrMalformed   = errors.New("malformed base64 payload")
	ErrTooLarge    = errors.New("media payload too large")
	ErrWrongFamily = errors.New("media type not accepted for this field")
)

// sniffed containers that carry recorded audio
var audioContainers = map[string]string{
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
	"video/mp4":       "audio/mp4",
}

type Attachment struct {
	Kind     Kind
	MIMEType string
	Data     []byte
}

// Decode accepts "data:<mime>;base64,<payload>" or bare base64. An empty value returns nil, nil.
func Decode(raw string, kind Kind) (*Attachment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	declared, payload, err := splitDataURI(raw)
	if err != nil {
		return nil, err
	}
	payload = stripWhitespace(payload)

	if base64.StdEncoding.DecodedLen(len(payload)) > config.MaxMediaBytes+3 {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, config.MaxMediaBytes)
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if len(data) > config.MaxMediaBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, config.MaxMediaBytes)
	}

	mimeType, err := resolveMIME(kind, declared, baseType(mimetype.Detect(data).String()))
	if err != nil {
		return nil, err
	}
	return &Attachment{Kind: kind, MIMEType: mimeType, Data: data}, nil
}

func splitDataURI(raw string) (string, string, error) {
	if !strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", raw, nil
	}
	header, payload, found := strings.Cut(raw[len("data:"):], ",")
	if !found {
		return "", "", fmt.Errorf("%w: data URI has no payload", ErrMalformed)
	}
	params := strings.Split(header, ";")
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return "", "", fmt.Errorf("%w: data URI is not base64 encoded", ErrMalformed)
	}
	return strings.ToLower(strings.TrimSpace(params[0])), payload, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

func decodeBase64(payload string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformed, lastErr)
}

func baseType(m string) string {
	t, _, _ := strings.Cut(m, ";")
	return strings.TrimSpace(strings.ToLower(t))
}

func family(m string) string {
	f, _, _ := strings.Cut(m, "/")
	return f
}

// resolveMIME trusts the sniffed type when it recognises the bytes and the declared
// type only when sniffing is inconclusive.
func resolveMIME(kind Kind, declared string, detected string) (string, error) {
	if alias, ok := audioContainers[detected]; ok && kind == KindAudio {
		detected = alias
	}

	unknown := detected == "" || detected == "application/octet-stream"
	if !unknown {
		if family(detected) != string(kind) {
			return "", fmt.Errorf("%w: %s field received %s content", ErrWrongFamily, kind, detected)
		}
		return detected, nil
	}

	if declared == "" {
		return "", fmt.Errorf("%w: could not recognise %s content", ErrWrongFamily, kind)
	}
	if family(declared) != string(kind) {
		return "", fmt.Errorf("%w: %s field declared as %s", ErrWrongFamily, kind, declared)
	}
	return declared, nil
}

// MessageMediaType classifies a user turn by what was attached.
func MessageMediaType(image *Attachment, audio *Attachment) chatModel.MediaType {
	switch {
	case image != nil && audio != nil:
		return chatModel.MediaMultimodal
	case image != nil:
		return chatModel.MediaImage
	case audio != nil:
		return chatModel.MediaAudio
	default:
		return chatModel.MediaText
	}
}
