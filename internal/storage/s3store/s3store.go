// Package s3store реализует доступ к объектам пользователя в S3:
// листинг по префиксу, чтение пользовательских метаданных, загрузку
// файла отчета и выдачу presigned-ссылки на скачивание.
package s3store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ContentTypeXLSX MIME-тип сформированного отчета.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// API подмножество методов S3-клиента, используемое хранилищем.
type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Uploader загружает файл в бакет.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Presigner подписывает GET-запросы к объектам.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Object элемент листинга.
type Object struct {
	Key  string
	Size int64
}

// Store работает с одним бакетом. Каждый вызов ограничен callTimeout.
type Store struct {
	api         API
	uploader    Uploader
	presigner   Presigner
	bucket      string
	callTimeout time.Duration
}

// New создает Store поверх готового S3-клиента.
func New(client *s3.Client, bucket string, callTimeout time.Duration) *Store {
	return NewWithClients(client, manager.NewUploader(client), s3.NewPresignClient(client), bucket, callTimeout)
}

// NewWithClients создает Store из отдельных реализаций интерфейсов.
func NewWithClients(api API, uploader Uploader, presigner Presigner, bucket string, callTimeout time.Duration) *Store {
	return &Store{
		api:         api,
		uploader:    uploader,
		presigner:   presigner,
		bucket:      bucket,
		callTimeout: callTimeout,
	}
}

// Bucket имя бакета.
func (s *Store) Bucket() string { return s.bucket }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// List возвращает все объекты с заданным префиксом, проходя по всем страницам листинга.
func (s *Store) List(ctx context.Context, prefix string) ([]Object, error) {
	const op = "s3store.List"
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var out []Object
	for p.HasMorePages() {
		callCtx, cancel := s.withTimeout(ctx)
		page, err := p.NextPage(callCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, o := range page.Contents {
			obj := Object{Key: aws.ToString(o.Key)}
			if o.Size != nil {
				obj.Size = *o.Size
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

// Head возвращает пользовательские метаданные объекта с ключами в нижнем регистре.
func (s *Store) Head(ctx context.Context, key string) (map[string]string, error) {
	const op = "s3store.Head"
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	ho, err := s.api.HeadObject(callCtx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, key, err)
	}

	meta := make(map[string]string, len(ho.Metadata))
	for k, v := range ho.Metadata {
		meta[strings.ToLower(k)] = v
	}
	return meta, nil
}

// Upload загружает локальный файл под ключом key.
func (s *Store) Upload(ctx context.Context, localPath, key string) error {
	const op = "s3store.Upload"
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.uploader.Upload(callCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentTypeXLSX),
	})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, key, err)
	}
	return nil
}

// Presign возвращает ссылку на скачивание объекта, действительную ttl.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	const op = "s3store.Presign"
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	req, err := s.presigner.PresignGetObject(callCtx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return req.URL, nil
}
