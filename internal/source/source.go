package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

type (
	// URLSource opens the bucket named by each reference, loads the object
	// and closes the bucket again
	URLSource struct {
		maxSize int64
	}

	// BucketSource loads objects from one already-open bucket, using the
	// reference as the object key
	BucketSource struct {
		bucket  *blob.Bucket
		maxSize int64
	}
)

const (
	// DefaultMaxSize bounds the size of a loaded document
	DefaultMaxSize = 25 << 20

	DefaultContentType = "application/pdf"
	fileScheme         = "file"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyRef     = errors.New("file reference empty")
	ErrInvalidRef   = errors.New("invalid file reference")
)

// NewURLSource creates a source that resolves references to buckets
func NewURLSource() *URLSource {
	return &URLSource{maxSize: DefaultMaxSize}
}

// NewBucketSource creates a source over an open bucket. The caller keeps
// ownership of the bucket
func NewBucketSource(b *blob.Bucket) *BucketSource {
	return &BucketSource{bucket: b, maxSize: DefaultMaxSize}
}

// Load opens the bucket behind ref and reads the referenced object
func (s *URLSource) Load(
	ctx context.Context, ref string,
) (*api.SelectedFile, error) {
	bucketURL, key, err := SplitRef(ref)
	if err != nil {
		return nil, err
	}
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRef, ref, err)
	}
	defer func() { _ = b.Close() }()
	return load(ctx, b, key, s.maxSize)
}

// Load reads the object keyed by ref
func (s *BucketSource) Load(
	ctx context.Context, ref string,
) (*api.SelectedFile, error) {
	key := strings.TrimLeft(ref, "/")
	if key == "" {
		return nil, ErrEmptyRef
	}
	return load(ctx, s.bucket, key, s.maxSize)
}

// SplitRef separates a file reference into a bucket URL and an object
// key. Plain paths become file:// buckets over their directory
func SplitRef(ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", ErrEmptyRef
	}

	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return splitPath(ref)
	}
	if u.Scheme == fileScheme {
		return splitPath(u.Path)
	}

	key := strings.TrimLeft(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	u.Path = ""
	u.RawPath = ""
	return u.String(), key, nil
}

func splitPath(p string) (string, string, error) {
	if strings.HasSuffix(p, "/") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRef, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", ErrInvalidRef, p, err)
	}
	dir, name := filepath.Split(abs)
	if name == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRef, p)
	}
	u := url.URL{Scheme: fileScheme, Path: filepath.ToSlash(dir)}
	return u.String(), name, nil
}

func load(
	ctx context.Context, b *blob.Bucket, key string, maxSize int64,
) (*api.SelectedFile, error) {
	attrs, err := b.Attributes(ctx, key)
	if err != nil {
		return nil, wrapNotFound(key, err)
	}
	if attrs.Size > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, key,
			attrs.Size)
	}

	data, err := b.ReadAll(ctx, key)
	if err != nil {
		return nil, wrapNotFound(key, err)
	}

	res := &api.SelectedFile{
		Name:        path.Base(key),
		ContentType: contentType(key, attrs.ContentType),
		Data:        data,
		Size:        int64(len(data)),
	}
	if res.ContentType == DefaultContentType {
		res.Pages = CountPages(data)
	}

	slog.Debug("File loaded",
		slog.String("key", key),
		slog.String("content_type", res.ContentType),
		slog.Int("pages", res.Pages))
	return res, nil
}

func contentType(key, detected string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		ct, _, _ = strings.Cut(ct, ";")
		return ct
	}
	if detected != "" {
		ct, _, _ := strings.Cut(detected, ";")
		return ct
	}
	return DefaultContentType
}

func wrapNotFound(key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%w: %s", ErrFileNotFound, key)
	}
	slog.Error("Failed to read file",
		slog.String("key", key),
		log.Error(err))
	return err
}
