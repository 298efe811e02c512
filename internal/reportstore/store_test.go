package reportstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"posbackend/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 implements the subset of the S3 API used by S3Store.
type fakeS3 struct {
	s3iface.S3API
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObjectWithContext(_ aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]; !ok {
		return nil, awserr.New("NotFound", "not found", nil)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	prefix := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Prefix)
	var contents []*s3.Object
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			contents = append(contents, &s3.Object{Key: aws.String(strings.TrimPrefix(k, aws.StringValue(in.Bucket)+"/"))})
		}
	}
	f.mu.Unlock()

	// two pages to exercise pagination
	half := len(contents) / 2
	if !fn(&s3.ListObjectsV2Output{Contents: contents[:half]}, false) {
		return nil
	}
	fn(&s3.ListObjectsV2Output{Contents: contents[half:]}, true)
	return nil
}

func stores(t *testing.T) map[string]Store {
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "reports"))
	require.NoError(t, err)

	return map[string]Store{
		"file":   fileStore,
		"memory": NewMemoryStore(),
		"s3":     NewS3Store(newFakeS3(), "bucket", "reports/"),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "weekly_sales_weekly_20260101_090000.json", []byte(`{"n":1}`)))
			require.NoError(t, store.Put(ctx, "weekly_sales_weekly_20260108_090000.json", []byte(`{"n":2}`)))
			require.NoError(t, store.Put(ctx, "monthly_sales_monthly_20260105_090000.json", []byte(`{"n":3}`)))

			keys, err := store.List(ctx, "weekly_sales_weekly_")
			require.NoError(t, err)
			assert.Equal(t, []string{
				"weekly_sales_weekly_20260108_090000.json",
				"weekly_sales_weekly_20260101_090000.json",
			}, keys)

			data, err := store.Get(ctx, keys[0])
			require.NoError(t, err)
			assert.JSONEq(t, `{"n":2}`, string(data))

			_, err = store.Get(ctx, "nope.json")
			assert.ErrorIs(t, err, ErrNotFound)

			empty, err := store.List(ctx, "daily_")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStoreNeverReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "r.json", []byte("a")))
			assert.ErrorIs(t, store.Put(ctx, "r.json", []byte("b")), ErrExists)

			data, err := store.Get(ctx, "r.json")
			require.NoError(t, err)
			assert.Equal(t, "a", string(data))

			keys, err := store.List(ctx, "r")
			require.NoError(t, err)
			assert.Equal(t, []string{"r.json"}, keys)
		})
	}
}

func TestStoreRejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Put(ctx, "../escape.json", []byte("x")))
			assert.Error(t, store.Put(ctx, "a/b.json", []byte("x")))
			assert.Error(t, store.Put(ctx, "", []byte("x")))
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "a.json", []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, store.Put(context.Background(), "k.json", buf))
	buf[0] = 'z'

	data, err := store.Get(context.Background(), "k.json")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := &config.Config{Reports: config.ReportsConfig{Store: "memory"}}
	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Reports = config.ReportsConfig{Store: "file", Dir: t.TempDir()}
	s, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.Reports.Store = "tape"
	_, err = New(cfg)
	assert.Error(t, err)
}
