// Package export ships finished reports to S3-compatible object storage so
// dashboards and CI consumers can fetch them without access to the build host.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
	"github.com/cordlesssteve/topolop/internal/report"
)

// SARIFFileName is the object name the SARIF rendering is stored under,
// next to report.ResultsFileName.
const SARIFFileName = "topolop.sarif"

type Uploader struct {
	mc     *minio.Client
	bucket string
	prefix string
	log    *zap.SugaredLogger
}

// New builds an uploader for the configured endpoint. Access keys come from
// the caller because config files never carry secrets.
func New(cfg config.ExportConfig, accessKey, secretKey string, log *zap.SugaredLogger) (*Uploader, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("export endpoint not configured")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("export bucket not configured")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Endpoint, err)
	}
	return &Uploader{mc: mc, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}, nil
}

// Key returns the object key a run artifact is stored under.
func (u *Uploader) Key(runID, name string) string {
	return path.Join(u.prefix, runID, name)
}

// Upload stores the report and its SARIF rendering under the run id. The two
// puts run concurrently; the first failure cancels the other.
func (u *Uploader) Upload(ctx context.Context, r *model.UnifiedReport) error {
	jsonBody, err := report.Marshal(r)
	if err != nil {
		return err
	}
	sarifBody, err := report.ToSARIF(r)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return u.put(ctx, u.Key(r.RunID, report.ResultsFileName), jsonBody, "application/json")
	})
	g.Go(func() error {
		return u.put(ctx, u.Key(r.RunID, SARIFFileName), sarifBody, "application/sarif+json")
	})
	return g.Wait()
}

func (u *Uploader) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := u.mc.PutObject(ctx, u.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", u.bucket, key, err)
	}
	u.log.Debugw("uploaded artifact", "bucket", u.bucket, "key", key, "bytes", len(body))
	return nil
}
