package minio

import (
	"context"
	"flag"
	"io"

	util_io "github.com/ValerySidorin/stockpile/pkg/util/io"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type Config struct {
	Endpoint          string `yaml:"endpoint"`
	MinioRootUser     string `yaml:"minio_root_user"`
	MinioRootPassword string `yaml:"minio_root_password"`
	Secure            bool   `yaml:"secure"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Endpoint, flagPrefix+"minio.endpoint", "localhost:9000", `MinIO endpoint.`)
	f.StringVar(&c.MinioRootUser, flagPrefix+"minio.root-user", "", `MinIO access key.`)
	f.StringVar(&c.MinioRootPassword, flagPrefix+"minio.root-password", "", `MinIO secret key.`)
	f.BoolVar(&c.Secure, flagPrefix+"minio.secure", false, `Use TLS to talk to MinIO.`)
}

type Writer struct {
	client *minio.Client
	bucket string
}

func NewWriter(ctx context.Context, cfg Config, bucket string) (*Writer, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioRootUser, cfg.MinioRootPassword, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize minio client for writer")
	}

	found, err := minioClient.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errors.Wrap(err, "check minio bucket exists")
	}

	if !found {
		if err := minioClient.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "make minio bucket")
		}
	}

	return &Writer{
		client: minioClient,
		bucket: bucket,
	}, nil
}

func (w *Writer) Store(ctx context.Context, objName string, contentType string, r io.Reader) error {
	_, err := w.client.PutObject(ctx, w.bucket, objName, r, util_io.SizeOf(r), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, "store minio object")
	}

	return nil
}
