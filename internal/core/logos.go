package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxLogoBytes bounds a single logo upload.
const MaxLogoBytes = 2 << 20

const logoKeyPrefix = "brand-logos/"

var (
	// ErrInvalidLogo is returned (wrapped) for uploads that cannot be stored.
	ErrInvalidLogo = errors.New("invalid logo")
	// ErrNoLogo is returned when a brand has no logo entry.
	ErrNoLogo = errors.New("brand has no logo")
)

var allowedLogoTypes = map[string]struct{}{
	"image/png":     {},
	"image/jpeg":    {},
	"image/webp":    {},
	"image/svg+xml": {},
}

// LogoUpload is an image attached to a pen or ink draft.
type LogoUpload struct {
	ContentType string
	Data        []byte
}

// Validate checks the content type and size.
func (u LogoUpload) Validate() error {
	if _, ok := allowedLogoTypes[u.ContentType]; !ok {
		return fmt.Errorf("%w: unsupported content type %q", ErrInvalidLogo, u.ContentType)
	}
	if len(u.Data) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidLogo)
	}
	if len(u.Data) > MaxLogoBytes {
		return fmt.Errorf("%w: image is %d bytes, limit %d", ErrInvalidLogo, len(u.Data), MaxLogoBytes)
	}
	return nil
}

// ParseDataURL decodes a base64 data URL as produced by a browser file
// reader, e.g. "data:image/png;base64,iVBOR...".
func ParseDataURL(raw string) (*LogoUpload, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data url", ErrInvalidLogo)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing data separator", ErrInvalidLogo)
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if !strings.EqualFold(encoding, "base64") {
		return nil, fmt.Errorf("%w: data url must be base64 encoded", ErrInvalidLogo)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data url: %v", ErrInvalidLogo, err)
	}
	upload := &LogoUpload{ContentType: strings.ToLower(contentType), Data: data}
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	return upload, nil
}

// DataURL renders the upload back into data URL form.
func (u LogoUpload) DataURL() string {
	return "data:" + u.ContentType + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

// logoObjectKey derives a fresh object key for a brand key. Each upload gets
// its own object so a failed transaction never clobbers the committed image.
func logoObjectKey(brandKey string) string {
	return logoKeyPrefix + base64.RawURLEncoding.EncodeToString([]byte(brandKey)) + "/" + uuid.Must(uuid.NewV7()).String()
}

// LogoImage is a resolved logo entry together with its image bytes.
type LogoImage struct {
	Logo BrandLogo
	Data []byte
}
