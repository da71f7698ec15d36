// Package source resolves operator file references into the document the
// wizard uploads. References name a local path, a file:// URL, or an
// object in a cloud bucket (s3://, gs://, azblob://)
package source
