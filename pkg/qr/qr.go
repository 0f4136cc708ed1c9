package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

const dataURIPrefix = "data:image/png;base64,"

// Payload is the credential pair embedded in a student's login QR code.
type Payload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Generator renders credential payloads into PNG QR codes.
type Generator struct {
	level qrcode.RecoveryLevel
	size  int
}

// NewGenerator builds a generator producing size x size images. Size <= 0 means 256.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = 256
	}
	return &Generator{level: qrcode.Medium, size: size}
}

// PNG encodes the credential payload into a QR image.
func (g *Generator) PNG(username, password string) ([]byte, error) {
	raw, err := json.Marshal(Payload{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(raw), g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURI returns the QR image as a data URI suitable for <img src>.
func (g *Generator) DataURI(username, password string) (string, error) {
	png, err := g.PNG(username, password)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeDataURI extracts the PNG bytes from a data URI produced by DataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, fmt.Errorf("unsupported data uri")
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return png, nil
}

// ParsePayload reads the text scanned from a login QR code.
func ParsePayload(raw string) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return Payload{}, appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, appErrors.ErrMalformedInput.Status, "invalid QR code format")
	}
	if payload.Username == "" || payload.Password == "" {
		return Payload{}, appErrors.Clone(appErrors.ErrMalformedInput, "invalid QR code content: missing required data")
	}
	return payload, nil
}
