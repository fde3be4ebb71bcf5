package attachments

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"golang.org/x/crypto/blake2b"

	// Bucket drivers selectable through ATTACHMENTS_BUCKET_URL.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// DefaultMaxSize is the upload ceiling when none is configured.
const DefaultMaxSize int64 = 5 * 1024 * 1024

// AllowedContentTypes lists the accepted MIME types.
var AllowedContentTypes = []string{"image/jpeg", "image/png", "application/pdf", "text/plain"}

// Storage keeps attachment bytes in a blob bucket and hands out references.
type Storage struct {
	bucket  *blob.Bucket
	baseURL string
	maxSize int64
	now     func() time.Time
}

// Open opens the bucket named by cfg.BucketURL.
func Open(ctx context.Context, cfg config.AttachmentsConfig) (*Storage, error) {
	bucket, err := blob.OpenBucket(ctx, cfg.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("open attachment bucket: %w", err)
	}
	return NewStorage(bucket, cfg.PublicBaseURL, cfg.MaxSizeBytes), nil
}

// NewStorage wraps an already opened bucket.
func NewStorage(bucket *blob.Bucket, baseURL string, maxSize int64) *Storage {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Storage{
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// MaxSize returns the upload ceiling in bytes.
func (s *Storage) MaxSize() int64 { return s.maxSize }

// Validate checks declared size and content type before any bytes are read.
// Content type parameters and case are ignored.
func (s *Storage) Validate(fileName, contentType string, size int64) error {
	contentType = normalizeType(contentType)
	details := map[string]any{"fileName": fileName}
	if size > s.maxSize {
		details["maxSizeBytes"] = s.maxSize
		return apperrors.NewValidationError("attachment exceeds maximum size", details)
	}
	if !allowedType(contentType) {
		details["contentType"] = contentType
		details["allowed"] = AllowedContentTypes
		return apperrors.NewValidationError("attachment type not allowed", details)
	}
	return nil
}

// Upload stores the content and returns the attachment reference. size may
// be -1 when unknown; the stream is still capped at the maximum size.
func (s *Storage) Upload(ctx context.Context, fileName, contentType string, size int64, r io.Reader) (*domain.Attachment, error) {
	contentType = normalizeType(contentType)
	if err := s.Validate(fileName, contentType, size); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(content)) > s.maxSize {
		return nil, apperrors.NewValidationError("attachment exceeds maximum size", map[string]any{
			"fileName":     fileName,
			"maxSizeBytes": s.maxSize,
		})
	}

	id := uuid.NewString()
	name := cleanName(fileName)
	digest := blake2b.Sum256(content)
	key := fmt.Sprintf("%s-%s/%s", hex.EncodeToString(digest[:8]), id, name)

	if err := s.bucket.WriteAll(ctx, key, content, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}

	return &domain.Attachment{
		ID:         id,
		FileName:   name,
		URL:        s.baseURL + "/" + escapeKey(key),
		UploadedAt: s.now().UTC(),
	}, nil
}

// Object is an open attachment stream.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// Open streams a stored attachment back. Missing keys map to NotFound.
func (s *Storage) Open(ctx context.Context, key string) (*Object, error) {
	reader, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, apperrors.NewNotFound("attachment", map[string]any{"key": key})
		}
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return &Object{ReadCloser: reader, ContentType: reader.ContentType(), Size: reader.Size()}, nil
}

// Read returns the full attachment content.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, "", fmt.Errorf("read attachment: %w", err)
	}
	return buf.Bytes(), obj.ContentType, nil
}

// Remove deletes the blob behind an attachment reference issued by Upload.
// A missing blob is not an error.
func (s *Storage) Remove(ctx context.Context, att domain.Attachment) error {
	key, err := s.KeyFromURL(att.URL)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// KeyFromURL recovers the bucket key from an attachment URL.
func (s *Storage) KeyFromURL(rawURL string) (string, error) {
	escaped, ok := strings.CutPrefix(rawURL, s.baseURL+"/")
	if !ok || escaped == "" {
		return "", apperrors.NewValidationError("attachment url outside storage", map[string]any{"url": rawURL})
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", apperrors.NewValidationError("malformed attachment url", map[string]any{"url": rawURL})
	}
	return key, nil
}

// Keys lists every stored key, sorted by the bucket.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.bucket.List(nil)
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list attachments: %w", err)
		}
		keys = append(keys, obj.Key)
	}
}

// Ping reports whether the bucket is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("attachment bucket not accessible")
	}
	return nil
}

// Close releases the bucket.
func (s *Storage) Close() error {
	return s.bucket.Close()
}

func allowedType(contentType string) bool {
	for _, allowed := range AllowedContentTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// normalizeType drops parameters such as "; charset=utf-8".
func normalizeType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func cleanName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
