package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"catalogenum/internal/blob/core"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), Config{
		Bucket:          "enums",
		Prefix:          "/generated/",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if got := store.objectKey("items.h"); got != "generated/items.h" {
		t.Fatalf("objectKey = %q", got)
	}
}

func TestMockPutGetHeadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()

	body := "enum eItems {\n    IRON_SWORD = 1,\n};\n"
	info, err := store.Put(ctx, "include/items.h", strings.NewReader(body), core.PutOptions{
		ContentType: "text/x-c",
		Metadata:    map[string]string{"catalog-version": "3"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(body)) || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["catalog-version"] != "3" {
		t.Fatalf("metadata not returned: %+v", info.Metadata)
	}

	got, rc, err := store.Get(ctx, "include/items.h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != body {
		t.Fatalf("unexpected body %q", data)
	}
	if got.ContentType != "text/x-c" {
		t.Fatalf("unexpected content type %q", got.ContentType)
	}

	// Put replaces the previous object.
	if _, err := store.Put(ctx, "include/items.h", strings.NewReader("enum eItems {\n\n};\n"), core.PutOptions{}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	head, err := store.Head(ctx, "include/items.h")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != int64(len("enum eItems {\n\n};\n")) {
		t.Fatalf("overwrite not visible: %+v", head)
	}
	if head.ETag == info.ETag {
		t.Fatalf("expected etag to change after overwrite")
	}
}

func TestMockMissingKeyIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if _, err := store.Head(ctx, "missing.h"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing.h"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Put(ctx, " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestDecodeChunked(t *testing.T) {
	payload := []byte("5;chunk-signature=abc\r\nhello\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	got, ok := decodeChunked(payload)
	if !ok || string(got) != "hello" {
		t.Fatalf("decodeChunked = %q, %v", got, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatalf("plain body should not decode")
	}
	if _, ok := decodeChunked([]byte("zz\r\nhello\r\n0\r\n")); ok {
		t.Fatalf("invalid size should not decode")
	}
}
