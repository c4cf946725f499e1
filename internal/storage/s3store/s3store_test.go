package s3store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	pages    [][]string
	metadata map[string]map[string]string
	listErr  error
	prefixes []string
	deadline bool
}

func (f *fakeAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	_, f.deadline = ctx.Deadline()
	f.prefixes = append(f.prefixes, aws.ToString(in.Prefix))

	idx := 0
	if in.ContinuationToken != nil {
		idx = len(aws.ToString(in.ContinuationToken))
	}
	out := &s3.ListObjectsV2Output{}
	for _, k := range f.pages[idx] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(10)})
	}
	if idx+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		// токен — строка длины номера следующей страницы
		tok := make([]byte, idx+1)
		for i := range tok {
			tok[i] = 'x'
		}
		out.NextContinuationToken = aws.String(string(tok))
	}
	return out, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m, ok := f.metadata[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("not found")
	}
	return &s3.HeadObjectOutput{Metadata: m}, nil
}

type fakeUploader struct {
	key  string
	body []byte
	ct   string
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.key = aws.ToString(in.Key)
	f.ct = aws.ToString(in.ContentType)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &manager.UploadOutput{}, nil
}

type fakePresigner struct {
	expires     time.Duration
	hadDeadline bool
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	f.expires = o.Expires
	_, f.hadDeadline = ctx.Deadline()
	return &v4.PresignedHTTPRequest{URL: "https://" + aws.ToString(in.Bucket) + ".s3.amazonaws.com/" + aws.ToString(in.Key) + "?X-Amz-Signature=abc"}, nil
}

func TestStore_ListPaginates(t *testing.T) {
	api := &fakeAPI{pages: [][]string{{"sub/a.jpg", "sub/b.jpg"}, {"sub/c.jpg"}}}
	s := NewWithClients(api, &fakeUploader{}, &fakePresigner{}, "bucket", time.Second)

	objs, err := s.List(context.Background(), "sub/")
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "sub/a.jpg", objs[0].Key)
	assert.Equal(t, "sub/c.jpg", objs[2].Key)
	assert.Equal(t, int64(10), objs[0].Size)
	assert.Equal(t, []string{"sub/", "sub/"}, api.prefixes)
	assert.True(t, api.deadline)
}

func TestStore_ListError(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("access denied")}
	s := NewWithClients(api, &fakeUploader{}, &fakePresigner{}, "bucket", 0)

	_, err := s.List(context.Background(), "sub/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestStore_HeadLowercasesKeys(t *testing.T) {
	api := &fakeAPI{metadata: map[string]map[string]string{
		"sub/a.jpg": {"Date": "2024-06-14", "PRICE": "12.50", "category": "Hotel"},
	}}
	s := NewWithClients(api, &fakeUploader{}, &fakePresigner{}, "bucket", time.Second)

	meta, err := s.Head(context.Background(), "sub/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"date": "2024-06-14", "price": "12.50", "category": "Hotel"}, meta)

	_, err = s.Head(context.Background(), "sub/missing.jpg")
	assert.Error(t, err)
}

func TestStore_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx-bytes"), 0o600))

	up := &fakeUploader{}
	s := NewWithClients(&fakeAPI{}, up, &fakePresigner{}, "bucket", time.Second)

	require.NoError(t, s.Upload(context.Background(), path, "sub/expense_report_2024-06-16.xlsx"))
	assert.Equal(t, "sub/expense_report_2024-06-16.xlsx", up.key)
	assert.Equal(t, []byte("xlsx-bytes"), up.body)
	assert.Equal(t, ContentTypeXLSX, up.ct)

	assert.Error(t, s.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), "k"))
}

func TestStore_Presign(t *testing.T) {
	p := &fakePresigner{}
	s := NewWithClients(&fakeAPI{}, &fakeUploader{}, p, "expensereport-bucket", time.Second)

	url, err := s.Presign(context.Background(), "sub/expense_report_2024-06-16.xlsx", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "sub/expense_report_2024-06-16.xlsx")
	assert.Equal(t, time.Hour, p.expires)
	assert.True(t, p.hadDeadline)
	assert.Equal(t, "expensereport-bucket", s.Bucket())
}

func TestStore_PresignWithoutCallTimeout(t *testing.T) {
	p := &fakePresigner{}
	s := NewWithClients(&fakeAPI{}, &fakeUploader{}, p, "bucket", 0)

	_, err := s.Presign(context.Background(), "sub/report.xlsx", time.Minute)
	require.NoError(t, err)
	assert.False(t, p.hadDeadline)
}
