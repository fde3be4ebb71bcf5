package attachments

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"

	"github.com/spec-kit/helpdesk/internal/config"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage(memblob.OpenBucket(nil), "/attachments/", 0)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUploadAndRead(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	content := []byte("hello support")

	att, err := s.Upload(ctx, "notes/log file.txt", "text/plain; charset=utf-8", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if att.ID == "" || att.FileName != "log file.txt" {
		t.Fatalf("attachment = %+v", att)
	}
	if !strings.HasPrefix(att.URL, "/attachments/") || !strings.HasSuffix(att.URL, "/log%20file.txt") {
		t.Fatalf("URL = %q", att.URL)
	}
	if !att.UploadedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("UploadedAt = %v", att.UploadedAt)
	}

	key := strings.TrimPrefix(att.URL, "/attachments/")
	key = strings.ReplaceAll(key, "%20", " ")
	got, contentType, err := s.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !bytes.Equal(got, content) || contentType != "text/plain" {
		t.Fatalf("Read() = %q, %q", got, contentType)
	}
}

func TestUploadRejects(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	cases := []struct {
		name        string
		contentType string
		size        int64
		body        []byte
	}{
		{"declared too large", "image/png", DefaultMaxSize + 1, []byte("x")},
		{"stream too large", "image/png", -1, bytes.Repeat([]byte("x"), int(DefaultMaxSize)+1)},
		{"bad type", "application/zip", 3, []byte("zip")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Upload(ctx, "f", tc.contentType, tc.size, bytes.NewReader(tc.body))
			if !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
				t.Fatalf("Upload() error = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestUploadAcceptsExactLimit(t *testing.T) {
	s := newTestStorage(t)
	body := bytes.Repeat([]byte("a"), int(DefaultMaxSize))
	if _, err := s.Upload(context.Background(), "big.pdf", "application/pdf", DefaultMaxSize, bytes.NewReader(body)); err != nil {
		t.Fatalf("Upload() at limit error: %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.Open(context.Background(), "nope/missing.txt"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("Open() error = %v, want NOT_FOUND", err)
	}
}

func TestOpenFromConfig(t *testing.T) {
	s, err := Open(context.Background(), config.AttachmentsConfig{BucketURL: "mem://", PublicBaseURL: "/a", MaxSizeBytes: 10})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()
	if s.MaxSize() != 10 {
		t.Fatalf("MaxSize() = %d", s.MaxSize())
	}
}

func TestPing(t *testing.T) {
	s := newTestStorage(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestValidateNormalizesContentType(t *testing.T) {
	s := newTestStorage(t)
	cases := []struct {
		contentType string
		ok          bool
	}{
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"IMAGE/PNG", true},
		{" Application/PDF ", true},
		{"image/gif", false},
		{"", false},
	}
	for _, tc := range cases {
		err := s.Validate("f", tc.contentType, 1)
		if tc.ok && err != nil {
			t.Errorf("Validate(%q) error: %v", tc.contentType, err)
		}
		if !tc.ok && !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
			t.Errorf("Validate(%q) error = %v, want VALIDATION_FAILED", tc.contentType, err)
		}
	}
}

func TestRemove(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	att, err := s.Upload(ctx, "log file.txt", "text/plain", 2, bytes.NewReader([]byte("hi")))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("Keys() = %v, %v", keys, err)
	}
	key, err := s.KeyFromURL(att.URL)
	if err != nil || key != keys[0] {
		t.Fatalf("KeyFromURL() = %q, %v, want %q", key, err, keys[0])
	}

	if err := s.Remove(ctx, *att); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("Keys() after Remove = %v", keys)
	}
	if err := s.Remove(ctx, *att); err != nil {
		t.Fatalf("second Remove() error: %v", err)
	}
	if _, err := s.KeyFromURL("https://elsewhere.example/x.txt"); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("KeyFromURL(foreign) error = %v", err)
	}
}
