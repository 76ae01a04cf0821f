package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/routecrawl/internal/model"
)

// DefaultS3Concurrency is how many objects are uploaded at once.
const DefaultS3Concurrency = 8

// S3Config configures an S3Exporter.
type S3Config struct {
	Bucket string
	Region string

	// Endpoint overrides the AWS endpoint, e.g. for LocalStack or MinIO.
	// Path-style addressing is used whenever it is set.
	Endpoint string

	// Prefix is prepended to every object key.
	Prefix string

	// AccessKey and SecretKey select static credentials. When empty the
	// default AWS credential chain is used.
	AccessKey string
	SecretKey string

	// Concurrency limits parallel uploads. Zero means DefaultS3Concurrency.
	Concurrency int
}

// objectPutter is the subset of *s3.Client the exporter uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads results to an S3 bucket.
//
// Each result is written to <prefix>/<sha256(url)>/result.json, so a later
// run overwrites the object of the same page. The run summary goes to
// <prefix>/runs/<start time>/report.json.
type S3Exporter struct {
	client objectPutter
	cfg    S3Config
	logger *slog.Logger
}

var _ Exporter = (*S3Exporter)(nil)

// NewS3Exporter loads the AWS configuration and creates an exporter.
func NewS3Exporter(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Most S3-compatible servers do not support virtual-hosted bucket addressing.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	return newS3Exporter(client, cfg, logger), nil
}

func newS3Exporter(client objectPutter, cfg S3Config, logger *slog.Logger) *S3Exporter {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultS3Concurrency
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &S3Exporter{client: client, cfg: cfg, logger: logger}
}

// Name returns "s3".
func (e *S3Exporter) Name() string {
	return "s3"
}

// Export uploads every result and then the run summary.
func (e *S3Exporter) Export(ctx context.Context, report *model.RunReport) error {
	e.logger.Info("exporting results to s3", "bucket", e.cfg.Bucket, "count", len(report.Results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, res := range report.Results {
		g.Go(func() error {
			body, err := json.Marshal(newRecord(res, true))
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", res.URL, err)
			}
			return e.put(gctx, e.ResultKey(res.URL), body)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summary := *report
	summary.Results = nil
	body, err := json.Marshal(&summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	return e.put(ctx, e.SummaryKey(report), body)
}

// ResultKey returns the object key of the result stored for url.
func (e *S3Exporter) ResultKey(url string) string {
	return e.key(urlHash(url), "result.json")
}

// SummaryKey returns the object key of the run summary.
func (e *S3Exporter) SummaryKey(report *model.RunReport) string {
	return e.key("runs", report.StartedAt.UTC().Format("20060102T150405Z"), "report.json")
}

func (e *S3Exporter) key(parts ...string) string {
	if e.cfg.Prefix != "" {
		parts = append([]string{e.cfg.Prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func (e *S3Exporter) put(ctx context.Context, key string, body []byte) error {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", e.cfg.Bucket, key, err)
	}
	e.logger.Debug("uploaded object", "bucket", e.cfg.Bucket, "object", key)
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (e *S3Exporter) Close() error {
	return nil
}
