package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/infumap/storage-core/internal/errs"
)

// S3Config names the bucket and optional alternate endpoint one S3 backend
// connects to; an empty Region follows the usual AWS SDK environment
// fallback. There are no access key or secret fields: credentials always
// come from the AWS SDK's default credentials chain.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
}

const (
	firstByteTimeout = 10 * time.Second
	transferTimeout  = 120 * time.Second
)

// s3Backend wraps aws-sdk-go-v2's S3 client with the storage core's
// two-phase timeout: a short deadline to see the first response byte
// (catching a backend that never answers), and a longer deadline bounding
// the whole transfer.
type s3Backend struct {
	label  string
	client *s3.Client
	bucket string
}

func newS3Backend(ctx context.Context, label string, cfg S3Config) (*s3Backend, error) {
	optFns := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, errs.Wrap(errs.Backend, err, "loading aws config for %s", label)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Backend{label: label, client: client, bucket: cfg.Bucket}, nil
}

func (b *s3Backend) name() string { return b.label }

func (b *s3Backend) get(ctx context.Context, filename string) ([]byte, error) {
	// the request context also governs reading the response body, so the
	// first-byte deadline is a timer that cancels the transfer context only
	// if GetObject has not returned by then.
	transferCtx, cancelTransfer := context.WithTimeout(ctx, transferTimeout)
	defer cancelTransfer()
	firstByteTimer := time.AfterFunc(firstByteTimeout, cancelTransfer)

	out, err := b.client.GetObject(transferCtx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(filename),
	})
	firstByteTimer.Stop()
	if err != nil {
		var nf *s3types.NoSuchKey
		if errors.As(err, &nf) {
			return nil, errs.New(errs.NotFound, "s3 object %s/%s not found", b.bucket, filename)
		}
		return nil, errs.Wrap(errs.Backend, err, "%s: getting %s", b.label, filename)
	}
	defer out.Body.Close()

	data, err := readAllWithContext(transferCtx, out.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Backend, err, "%s: reading body of %s", b.label, filename)
	}
	return data, nil
}

func (b *s3Backend) put(ctx context.Context, filename string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(filename),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errs.Wrap(errs.Backend, err, "%s: putting %s", b.label, filename)
	}
	return nil
}

func (b *s3Backend) delete(ctx context.Context, filename string) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(filename),
	})
	if err != nil {
		return errs.Wrap(errs.Backend, err, "%s: deleting %s", b.label, filename)
	}
	return nil
}

func readAllWithContext(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		ch <- result{data, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.data, res.err
	}
}
