package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"

	"inked/internal/blob/core"
)

func TestStore_MockedBasicFlow(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	info, err := store.Put(ctx, "brand-logos/bGFteQ", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "brand-logos/bGFteQ" || info.ContentType != "image/png" || info.Size != 5 {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := store.Put(ctx, "brand-logos/bGFteQ", bytes.NewReader([]byte("ignored")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected duplicate put error, got %v", err)
	}
	_, rc, err := store.Get(ctx, "brand-logos/bGFteQ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "hello" {
		t.Fatalf("get mismatch: %q", string(data))
	}
	list, err := store.List(ctx, "brand-logos/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	url, err := store.PresignURL(ctx, "brand-logos/bGFteQ", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, mockEndpoint) {
		t.Fatalf("presign: %v %s", err, url)
	}
	if ok, err := store.Delete(ctx, "brand-logos/bGFteQ"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "brand-logos/bGFteQ"); err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
}

func TestStore_New(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "logos",
		Endpoint:        mockEndpoint,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 || s.Bucket() != "logos" {
		t.Fatalf("unexpected store %+v", s)
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestStore_NotFoundMapping(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected presign unsupported error")
	}
	if err := mapNotFound("k", errors.New("plain")); errors.Is(err, core.ErrNotFound) {
		t.Fatalf("plain errors must pass through")
	}
}

func TestStore_ListPaginates(t *testing.T) {
	store := newMockStore(&fakeS3{objects: make(map[string]fakeObject), pageSize: 1})
	ctx := context.Background()
	for _, k := range []string{"k2.png", "k1.png", "k3.png", "other.png"} {
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte("body")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "k")
	if err != nil || len(list) != 3 {
		t.Fatalf("expected three items via pagination: %v %+v", err, list)
	}
	if list[0].Key != "k1.png" || list[2].Key != "k3.png" {
		t.Fatalf("unexpected ordering %+v", list)
	}
	if url, err := store.PresignURL(ctx, "k1.png", core.SignedURLOptions{Expiry: 30 * time.Second}); err != nil || !strings.Contains(url, "X-Amz-Expires=30") {
		t.Fatalf("presign custom expiry: %v %s", err, url)
	}
	if list, err := store.List(ctx, "no-such-prefix/"); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list: %v %+v", err, list)
	}
}

func TestStore_FromHeadNilFields(t *testing.T) {
	store := NewMockForTests()
	info := store.fromHead("k", 10, nil, aws.String("\"etagval\""), map[string]string{"x": "y"}, nil)
	if info.ETag != "etagval" || info.ContentType != "" || info.Key != "k" || info.Size != 10 || info.LastModified.IsZero() {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDecodeChunkedHelper(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("expected fail 1")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("size mismatch should fail")
	}
	if b, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected decode hello")
	}
	png := "\x89PNG\r\n\x1a\nlogo"
	framed := fmt.Sprintf("%x\r\n%s\r\n0\r\nx-amz-checksum-crc32:YXYYXw==\r\n\r\n", len(png), png)
	if b, ok := decodeChunked([]byte(framed)); !ok || string(b) != png {
		t.Fatalf("expected CRLF inside the chunk to survive, got %q ok=%v", b, ok)
	}
	if b, ok := decodeChunked([]byte("3;chunk-signature=ab\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n")); !ok || string(b) != "foobar" {
		t.Fatalf("expected multi-chunk decode, got %q ok=%v", b, ok)
	}
	if _, ok := decodeChunked([]byte(png)); ok {
		t.Fatalf("raw png must not be treated as chunked")
	}
}

func TestStore_MockedPutKeepsCRLFBody(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	body := []byte("\x89PNG\r\n\x1a\n\r\nlamy")
	if _, err := store.Put(ctx, "brand-logos/bGFteQ/1", bytes.NewReader(body), core.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, rc, err := store.Get(ctx, "brand-logos/bGFteQ/1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(data, body) {
		t.Fatalf("body mismatch: %q", data)
	}
}

func TestFakeS3Unsupported(t *testing.T) {
	rt := &fakeS3{objects: make(map[string]fakeObject)}
	req, _ := http.NewRequest(http.MethodPatch, mockEndpoint+"/bucket/key", nil)
	resp, _ := rt.RoundTrip(req)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}
