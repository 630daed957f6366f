// source/source.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package source opens raw CIFP data from local files, Google Cloud
// Storage, or Amazon S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mmp/approachviz/log"
	"github.com/mmp/approachviz/util"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var ErrUnsupportedScheme = errors.New("unsupported source scheme")

type Options struct {
	// GCSCredentials holds service account credentials as JSON; if empty,
	// the default application credentials are used.
	GCSCredentials string `json:"gcs_credentials,omitempty"`

	S3Region    string `json:"s3_region,omitempty"`
	S3AccessKey string `json:"s3_access_key,omitempty"`
	S3SecretKey string `json:"s3_secret_key,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Open returns a reader for the CIFP data at uri, which may be a local
// path, a file:// URL, gs://bucket/object, or s3://bucket/key.
// zstd-compressed data is decompressed transparently.
func Open(ctx context.Context, uri string, opts Options) (io.ReadCloser, error) {
	rc, err := open(ctx, uri, opts)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("opened CIFP source", "uri", uri)
	return util.MaybeDecompress(rc)
}

func open(ctx context.Context, uri string, opts Options) (io.ReadCloser, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return os.Open(uri)
	}

	switch scheme {
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, err
		}
		return os.Open(u.Path)

	case "gs", "s3":
		bucket, object, _ := strings.Cut(rest, "/")
		if bucket == "" || object == "" {
			return nil, fmt.Errorf("%s: expected %s://bucket/object", uri, scheme)
		}
		if scheme == "gs" {
			return openGCS(ctx, bucket, object, opts)
		}
		return openS3(ctx, bucket, object, opts)

	default:
		return nil, fmt.Errorf("%s: %w", scheme, ErrUnsupportedScheme)
	}
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (g gcsReader) Close() error {
	err := g.Reader.Close()
	if cerr := g.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func openGCS(ctx context.Context, bucket, object string, opts Options) (io.ReadCloser, error) {
	var copts []option.ClientOption
	if opts.GCSCredentials != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(opts.GCSCredentials), storage.ScopeReadOnly)
		if err != nil {
			return nil, fmt.Errorf("GCS credentials: %w", err)
		}
		copts = append(copts, option.WithCredentials(creds))
	}

	client, err := storage.NewClient(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("gs://%s: %w", bucket, err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, err)
	}
	opts.Logger.Debug("reading GCS object", "bucket", bucket, "object", object, "size", r.Attrs.Size)
	return gcsReader{Reader: r, client: client}, nil
}

func openS3(ctx context.Context, bucket, key string, opts Options) (io.ReadCloser, error) {
	var lopts []func(*awsconfig.LoadOptions) error
	if opts.S3Region != "" {
		lopts = append(lopts, awsconfig.WithRegion(opts.S3Region))
	}
	if opts.S3AccessKey != "" {
		lopts = append(lopts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.S3AccessKey, opts.S3SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, lopts...)
	if err != nil {
		return nil, fmt.Errorf("s3://%s: %w", bucket, err)
	}
	out, err := s3.NewFromConfig(cfg).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
	}
	opts.Logger.Debug("reading S3 object", "bucket", bucket, "key", key, "size", aws.ToInt64(out.ContentLength))
	return out.Body, nil
}
