package core

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inked/internal/blob"
	"inked/internal/query"
	"inked/pkg/domain"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func pngUpload() *LogoUpload {
	return &LogoUpload{ContentType: "image/png", Data: append([]byte(nil), pngBytes...)}
}

func TestParseDataURL(t *testing.T) {
	raw := "data:image/PNG;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	upload, err := ParseDataURL(raw)
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, pngBytes, upload.Data)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), upload.DataURL())

	bad := []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
		"data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte("<p>")),
		"data:image/png;base64,",
	}
	for _, in := range bad {
		_, err := ParseDataURL(in)
		assert.ErrorIs(t, err, ErrInvalidLogo, "input %q", in)
	}
}

func TestLogoUploadValidateSize(t *testing.T) {
	big := LogoUpload{ContentType: "image/webp", Data: make([]byte, MaxLogoBytes+1)}
	assert.ErrorIs(t, big.Validate(), ErrInvalidLogo)
	ok := LogoUpload{ContentType: "image/svg+xml", Data: []byte("<svg/>")}
	assert.NoError(t, ok.Validate())
}

func TestLogoObjectKeyIsSafeAndUnique(t *testing.T) {
	a := logoObjectKey("noodler's / ink")
	b := logoObjectKey("noodler's / ink")
	assert.NotEqual(t, a, b)
	prefix := logoKeyPrefix + base64.RawURLEncoding.EncodeToString([]byte("noodler's / ink")) + "/"
	assert.True(t, strings.HasPrefix(a, prefix), a)
	segments := strings.Split(a, "/")
	require.Len(t, segments, 3, a)
	assert.Equal(t, strings.TrimSuffix(logoKeyPrefix, "/"), segments[0])
	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte("noodler's / ink")), segments[1])
	version, err := uuid.Parse(segments[2])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), version.Version())
}

func TestLogoPropagatesAcrossPenAndInk(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.AddPen(ctx, PenDraft{Brand: " Pilot ", Model: "Custom 823", Nib: NibDraft{Size: "M", Material: "14k Gold"}}, pngUpload())
	require.NoError(t, err)

	ink := mustAddInk(t, svc, InkDraft{Brand: "pilot", Name: "Iroshizuku Kon-peki", Color: "#009bce"})
	inks, err := svc.Inks(ctx, query.InkQuery{})
	require.NoError(t, err)
	require.Len(t, inks, 1)
	require.NotNil(t, inks[0].Logo, "ink of the same brand shares the pen's logo")
	assert.Equal(t, ink.ID, inks[0].ID)
	assert.Equal(t, "pilot", inks[0].Logo.BrandKey)

	img, ok, err := svc.BrandLogo(ctx, "PILOT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.Logo.ContentType)
	assert.Equal(t, int64(len(pngBytes)), img.Logo.Size)

	_, ok, err = svc.BrandLogo(ctx, "Lamy")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplacingLogoRemovesPreviousObject(t *testing.T) {
	store := blob.NewMemory()
	svc := newTestService(t, WithBlobStore(store))
	ctx := context.Background()

	pen, _, err := svc.AddPen(ctx, lamyDraft(), pngUpload())
	require.NoError(t, err)
	first, ok, err := svc.BrandLogo(ctx, "lamy")
	require.NoError(t, err)
	require.True(t, ok)

	svg := &LogoUpload{ContentType: "image/svg+xml", Data: []byte("<svg/>")}
	_, _, err = svc.UpdateInk(ctx, "missing", InkDraft{Brand: "Lamy", Name: "Blue"}, svg)
	require.True(t, domain.IsNotFound(err))
	objects, err := store.List(ctx, logoKeyPrefix)
	require.NoError(t, err)
	require.Len(t, objects, 1, "failed transaction must not leave its upload behind")

	_, _, err = svc.UpdatePen(ctx, pen.ID, lamyDraft(), svg)
	require.NoError(t, err)
	second, ok, err := svc.BrandLogo(ctx, "lamy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, first.Logo.ObjectKey, second.Logo.ObjectKey)
	assert.Equal(t, []byte("<svg/>"), second.Data)

	_, err = store.Head(ctx, first.Logo.ObjectKey)
	assert.True(t, errors.Is(err, blob.ErrNotFound), "replaced object is deleted, got %v", err)
	objects, err = store.List(ctx, logoKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestInvalidLogoRejectsBeforeWriting(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.AddPen(context.Background(), lamyDraft(), &LogoUpload{ContentType: "image/gif", Data: []byte("GIF89a")})
	require.ErrorIs(t, err, ErrInvalidLogo)
	assert.Empty(t, svc.ListPens())
}

func TestLogoURL(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.LogoURL(ctx, "Lamy", 0)
	require.ErrorIs(t, err, ErrNoLogo)

	_, _, err = svc.AddPen(ctx, lamyDraft(), pngUpload())
	require.NoError(t, err)
	_, err = svc.LogoURL(ctx, "Lamy", 0)
	assert.ErrorIs(t, err, blob.ErrUnsupported, "memory driver cannot presign")

	s3svc := newTestService(t, WithBlobStore(blob.NewMockS3ForTests()))
	_, _, err = s3svc.AddPen(ctx, lamyDraft(), pngUpload())
	require.NoError(t, err)
	url, err := s3svc.LogoURL(ctx, " lamy", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "brand-logos/")
}
