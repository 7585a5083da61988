// Package keysource resolves configured key references into PEM bytes.
//
// A reference is one of:
//
//	-----BEGIN ...        inline PEM (literal "\n" sequences are unescaped)
//	s3://bucket/object    object in S3 compatible storage
//	anything else         a file path
package keysource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

const (
	pemPrefix = "-----BEGIN"
	s3Scheme  = "s3://"
)

// ObjectReader reads whole objects from object storage.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Loader resolves key references.
type Loader struct {
	objects ObjectReader
}

// NewLoader creates a Loader. objects may be nil, then s3:// references fail.
func NewLoader(objects ObjectReader) *Loader {
	return &Loader{objects: objects}
}

// Load returns the PEM bytes ref points to, or nil for an empty ref.
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)

	switch {
	case ref == "":
		return nil, nil
	case strings.HasPrefix(ref, pemPrefix):
		return []byte(strings.ReplaceAll(ref, `\n`, "\n")), nil
	case strings.HasPrefix(ref, s3Scheme):
		return l.loadObject(ctx, ref)
	default:
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read key file: %w", model.ErrConfiguration, err)
		}
		return data, nil
	}
}

func (l *Loader) loadObject(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := ParseObjectRef(ref)
	if err != nil {
		return nil, err
	}
	if l.objects == nil {
		return nil, fmt.Errorf("%w: object storage is not configured for %s", model.ErrConfiguration, ref)
	}

	data, err := l.objects.ReadObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load key object: %w", model.ErrConfiguration, err)
	}
	return data, nil
}

// IsObjectRef reports whether ref points into object storage.
func IsObjectRef(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), s3Scheme)
}

// ParseObjectRef splits s3://bucket/object.
func ParseObjectRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(ref), s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3 reference", model.ErrConfiguration, ref)
	}

	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q must look like s3://bucket/object", model.ErrConfiguration, ref)
	}
	return bucket, key, nil
}
