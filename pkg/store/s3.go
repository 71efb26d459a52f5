package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/cyrogem/nodedialogue/pkg/asset"
)

// S3Config configures [NewS3Store].
type S3Config struct {
	Bucket     string
	Prefix     string // key prefix, e.g. "Assets/Dialogue/"
	Region     string
	Endpoint   string // non-empty enables path-style addressing (MinIO and similar)
	ScriptGUID string
}

// S3Store keeps each dialogue as a Unity .asset object in a bucket.
type S3Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	scriptGUID string
}

// NewS3Store loads the default AWS configuration and creates a client.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{
		client:     s3.NewFromConfig(awsCfg, s3opts...),
		bucket:     cfg.Bucket,
		prefix:     prefix,
		scriptGUID: cfg.ScriptGUID,
	}, nil
}

func (s *S3Store) key(name string) string {
	return s.prefix + name + asset.FormatAsset.Ext()
}

func (s *S3Store) Kind() string { return "s3" }

func (s *S3Store) Create(ctx context.Context, name string, a *asset.Asset) (bool, error) {
	err := s.put(ctx, name, a, aws.String("*"))
	if isPreconditionFailed(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *S3Store) Put(ctx context.Context, name string, a *asset.Asset) error {
	return s.put(ctx, name, a, nil)
}

// put uploads the asset. ifNoneMatch "*" makes the write conditional on the
// key being absent.
func (s *S3Store) put(ctx context.Context, name string, a *asset.Asset, ifNoneMatch *string) error {
	data, err := encodeUnity(a, s.scriptGUID)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(asset.FormatAsset.ContentType()),
		IfNoneMatch: ifNoneMatch,
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, name string) (*asset.Asset, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()
	return asset.ReadUnity(out.Body)
}

func (s *S3Store) List(ctx context.Context) ([]string, error) {
	ext := asset.FormatAsset.Ext()
	var names []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			rest := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ext) {
				continue
			}
			names = append(names, strings.TrimSuffix(rest, ext))
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return notFound(name)
	}
	if err != nil {
		return fmt.Errorf("s3 head object: %w", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}); err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isPreconditionFailed(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "PreconditionFailed"
}

var _ Backend = (*S3Store)(nil)
