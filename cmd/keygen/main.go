// Command keygen creates a token signing key pair. Keys are written to a
// directory, or uploaded to object storage when -bucket is set. Storage
// credentials come from the same MINIO_* environment as the server.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dtroode/knowledgebase-server/internal/config"
	"github.com/dtroode/knowledgebase-server/internal/keysource"
	"github.com/dtroode/knowledgebase-server/internal/logger"
	storage "github.com/dtroode/knowledgebase-server/internal/storage/minio"
)

const (
	privateKeyName = "private.pem"
	publicKeyName  = "public.pem"
)

func main() {
	alg := flag.String("alg", "RS256", "signing algorithm: RS256, ES256 or EdDSA")
	bits := flag.Int("bits", 2048, "RSA key size")
	out := flag.String("out", "keys", "output directory")
	bucket := flag.String("bucket", "", "upload to this bucket instead of writing files")
	prefix := flag.String("prefix", "", "object key prefix used with -bucket")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	priv, pub, err := generate(*alg, *bits)
	if err != nil {
		logger.Fatal("failed to generate key pair", "error", err, "algorithm", *alg)
	}

	if *bucket == "" {
		if err := writeFiles(*out, priv, pub); err != nil {
			logger.Fatal("failed to write key pair", "error", err, "dir", *out)
		}
		logger.Info("key pair written", "algorithm", *alg, "dir", *out)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := storage.Open(storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to connect to object storage", "error", err, "endpoint", cfg.Storage.Endpoint)
	}

	refs, err := upload(ctx, client, *bucket, *prefix, priv, pub)
	if err != nil {
		logger.Fatal("failed to upload key pair", "error", err, "bucket", *bucket)
	}

	logger.Info("key pair uploaded", "algorithm", *alg, "private", refs[0], "public", refs[1])
	fmt.Printf("JWT_ALGORITHM=%s\nJWT_PRIVATE_KEY=%s\nJWT_PUBLIC_KEY=%s\n", *alg, refs[0], refs[1])
}

func generate(alg string, bits int) (priv, pub []byte, err error) {
	switch alg {
	case "RS256", "RS384", "RS512":
		return keysource.GenerateRSA(bits)
	case "ES256":
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return keysource.EncodePEM(key, key.Public())
	case "EdDSA":
		pubKey, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return keysource.EncodePEM(key, pubKey)
	default:
		return nil, nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
}

func writeFiles(dir string, priv, pub []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, privateKeyName), priv, 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, publicKeyName), pub, 0o644)
}

type objectWriter interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// upload stores both keys and returns their s3:// references, private first.
func upload(ctx context.Context, w objectWriter, bucket, prefix string, priv, pub []byte) ([2]string, error) {
	var refs [2]string

	if err := w.EnsureBucket(ctx, bucket); err != nil {
		return refs, err
	}

	for i, obj := range []struct {
		name string
		data []byte
	}{
		{privateKeyName, priv},
		{publicKeyName, pub},
	} {
		key := obj.name
		if prefix != "" {
			key = prefix + "/" + obj.name
		}
		if err := w.PutObject(ctx, bucket, key, obj.data); err != nil {
			return refs, fmt.Errorf("failed to put %s: %w", key, err)
		}
		refs[i] = fmt.Sprintf("s3://%s/%s", bucket, key)
	}

	return refs, nil
}
