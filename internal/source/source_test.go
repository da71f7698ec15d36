package source_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/kode4food/signwiz/internal/source"
)

func TestSplitRef(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		bucket string
		key    string
	}{
		{
			name:   "absolute path",
			ref:    "/srv/docs/contract.pdf",
			bucket: "file:///srv/docs/",
			key:    "contract.pdf",
		},
		{
			name:   "file URL",
			ref:    "file:///srv/docs/contract.pdf",
			bucket: "file:///srv/docs/",
			key:    "contract.pdf",
		},
		{
			name:   "s3 object",
			ref:    "s3://contracts/2024/q1/lease.pdf?region=eu-west-1",
			bucket: "s3://contracts?region=eu-west-1",
			key:    "2024/q1/lease.pdf",
		},
		{
			name:   "gcs object",
			ref:    "gs://contracts/lease.pdf",
			bucket: "gs://contracts",
			key:    "lease.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := source.SplitRef(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestSplitRefRelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	bucket, key, err := source.SplitRef("contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(wd)+"/", bucket)
	assert.Equal(t, "contract.pdf", key)
}

func TestSplitRefInvalid(t *testing.T) {
	_, _, err := source.SplitRef("  ")
	assert.ErrorIs(t, err, source.ErrEmptyRef)

	_, _, err = source.SplitRef("s3://bucket-only")
	assert.ErrorIs(t, err, source.ErrInvalidRef)

	_, _, err = source.SplitRef("/srv/docs/")
	assert.ErrorIs(t, err, source.ErrInvalidRef)
}

func TestURLSourceLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "contract.pdf")
	require.NoError(t, os.WriteFile(p, buildPDF(3), 0o600))

	src := source.NewURLSource()
	for _, ref := range []string{p, "file://" + filepath.ToSlash(p)} {
		f, err := src.Load(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "contract.pdf", f.Name)
		assert.Equal(t, "application/pdf", f.ContentType)
		assert.Equal(t, 3, f.Pages)
		assert.Equal(t, int64(len(f.Data)), f.Size)
	}
}

func TestURLSourceMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := source.NewURLSource().Load(context.Background(),
		filepath.Join(dir, "missing.pdf"),
	)
	assert.ErrorIs(t, err, source.ErrFileNotFound)
}

func TestBucketSource(t *testing.T) {
	ctx := context.Background()
	b := memblob.OpenBucket(nil)
	defer func() { _ = b.Close() }()

	require.NoError(t, b.WriteAll(ctx, "docs/lease.pdf", buildPDF(2), nil))
	require.NoError(t, b.WriteAll(ctx, "docs/notes.txt",
		[]byte("hello"), nil,
	))

	src := source.NewBucketSource(b)

	f, err := src.Load(ctx, "/docs/lease.pdf")
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", f.Name)
	assert.Equal(t, 2, f.Pages)

	f, err = src.Load(ctx, "docs/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", f.ContentType)
	assert.Zero(t, f.Pages)

	_, err = src.Load(ctx, "docs/none.pdf")
	assert.ErrorIs(t, err, source.ErrFileNotFound)

	_, err = src.Load(ctx, "")
	assert.ErrorIs(t, err, source.ErrEmptyRef)
}

func TestCountPages(t *testing.T) {
	assert.Equal(t, 1, source.CountPages(buildPDF(1)))
	assert.Equal(t, 4, source.CountPages(buildPDF(4)))
	assert.Zero(t, source.CountPages([]byte("not a pdf")))
	assert.Zero(t, source.CountPages(nil))
}

// buildPDF assembles a minimal document with a correct cross-reference
// table
func buildPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		_, _ = fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf(
		"<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		kids, pages,
	))
	for range pages {
		obj("<< /Type /Page /Parent 2 0 R /Resources << >> >>")
	}

	xref := buf.Len()
	_, _ = fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		_, _ = fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	_, _ = fmt.Fprintf(&buf,
		"trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref,
	)
	return buf.Bytes()
}
