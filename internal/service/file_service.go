package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"shop-service/internal/entity"
)

const sampleFile = "sample.txt"

var sampleFiles = []string{"sample1.txt", "sample2.txt", "sample3.txt"}

// FileStore reads named text files.
type FileStore interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// DirStore reads files from a local directory. Names never leave dir.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (d *DirStore) ReadFile(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.dir, filepath.Base(name)))
}

// S3GetObjectAPI is the part of *s3.Client S3Store needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads files from a bucket.
type S3Store struct {
	client S3GetObjectAPI
	bucket string
}

func NewS3Store(client S3GetObjectAPI, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) ReadFile(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, name, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a client from the default AWS config chain. Static
// credentials and a custom endpoint (e.g. MinIO) are used when given.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type FileService struct {
	store FileStore
}

func NewFileService(store FileStore) *FileService {
	return &FileService{store: store}
}

// ReadFile returns the content of the sample file.
func (s *FileService) ReadFile(ctx context.Context) (*entity.FileContent, error) {
	data, err := s.store.ReadFile(ctx, sampleFile)
	if err != nil {
		log.Error().Err(err).Msgf("Error reading file %s", sampleFile)
		e := internal("Error reading file", err)
		e.Detail = err.Error()
		return nil, e
	}
	return &entity.FileContent{Filename: sampleFile, Content: string(data)}, nil
}

// ReadFiles reads the numbered sample files concurrently. The result keeps
// the order of the file names; any failure fails the whole call.
func (s *FileService) ReadFiles(ctx context.Context) ([]entity.FileContent, error) {
	files := make([]entity.FileContent, len(sampleFiles))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range sampleFiles {
		i, name := i, name
		g.Go(func() error {
			data, err := s.store.ReadFile(gctx, name)
			if err != nil {
				return err
			}
			files[i] = entity.FileContent{Filename: name, Content: string(data)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Error reading files")
		e := internal("Error reading files", err)
		e.Detail = err.Error()
		return nil, e
	}
	return files, nil
}
