package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLocalSink_Put(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sink := NewLocalSink(root)

	loc, err := sink.Put(context.Background(), "dme/bom_20240101120000.csv", strings.NewReader("Designator\nR1\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "dme", "bom_20240101120000.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "Designator\nR1\n", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "dme"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalSink_Overwrite(t *testing.T) {
	t.Parallel()

	sink := NewLocalSink(t.TempDir())
	_, err := sink.Put(context.Background(), "a.csv", strings.NewReader("old"))
	require.NoError(t, err)
	loc, err := sink.Put(context.Background(), "a.csv", strings.NewReader("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocalSink_Delete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sink := NewLocalSink(root)
	ctx := context.Background()

	_, err := sink.Put(ctx, "dme/run/a.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = sink.Put(ctx, "dme/b.csv", strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, sink.Delete(ctx, "dme/run/a.csv"))
	_, err = os.Stat(filepath.Join(root, "dme", "run"))
	assert.True(t, os.IsNotExist(err), "empty parent removed")
	_, err = os.Stat(filepath.Join(root, "dme", "b.csv"))
	assert.NoError(t, err, "siblings kept")

	require.NoError(t, sink.Delete(ctx, "dme/b.csv"))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NoError(t, sink.Delete(ctx, "dme/missing.csv"))
	assert.Error(t, sink.Delete(ctx, "../escape.csv"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestLocalSink_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sink := NewLocalSink(root)

	_, err := sink.Put(context.Background(), "../escape.csv", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a clean relative path")

	_, err = sink.Put(context.Background(), "", strings.NewReader("x"))
	require.Error(t, err)

	_, err = sink.Put(context.Background(), "broken.csv", failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	_, statErr := os.Stat(filepath.Join(root, "broken.csv"))
	assert.True(t, os.IsNotExist(statErr))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sink.Put(ctx, "late.csv", strings.NewReader("x"))
	require.ErrorIs(t, err, context.Canceled)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func TestS3Sink_Put(t *testing.T) {
	t.Parallel()

	client := &mockS3{}
	var body string
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "boms" &&
			aws.ToString(in.Key) == "exports/kaon/bom.csv" &&
			aws.ToString(in.ContentType) == "text/csv"
	})).Run(func(args mock.Arguments) {
		b, _ := io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
		body = string(b)
	}).Return(&s3.PutObjectOutput{}, nil)

	sink := NewS3SinkWithClient(client, "boms", "/exports/")
	loc, err := sink.Put(context.Background(), "kaon/bom.csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://boms/exports/kaon/bom.csv", loc)
	assert.Equal(t, "a,b\n", body)
	client.AssertExpectations(t)
}

func TestS3Sink_Put_NoPrefix(t *testing.T) {
	t.Parallel()

	client := &mockS3{}
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "lg/report.json" && aws.ToString(in.ContentType) == "application/json"
	})).Return(&s3.PutObjectOutput{}, nil)

	loc, err := NewS3SinkWithClient(client, "b", "").Put(context.Background(), "lg/report.json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, "s3://b/lg/report.json", loc)
	client.AssertExpectations(t)
}

func TestS3Sink_Put_Error(t *testing.T) {
	t.Parallel()

	client := &mockS3{}
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := NewS3SinkWithClient(client, "b", "p").Put(context.Background(), "x.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/p/x.csv")
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Sink_Delete(t *testing.T) {
	t.Parallel()

	client := &mockS3{}
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Bucket) == "boms" && aws.ToString(in.Key) == "exports/dme/bom.csv"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()
	client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	sink := NewS3SinkWithClient(client, "boms", "exports")
	require.NoError(t, sink.Delete(context.Background(), "dme/bom.csv"))

	err := sink.Delete(context.Background(), "dme/other.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://boms/exports/dme/other.csv")
	client.AssertExpectations(t)
}

func TestNewS3Sink(t *testing.T) {
	t.Parallel()

	_, err := NewS3Sink(context.Background(), S3Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")

	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:          "boms",
		Prefix:          "exports",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "boms", sink.bucket)
	assert.Equal(t, "exports", sink.prefix)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "text/csv", contentType("a/B.CSV"))
	assert.Equal(t, "application/yaml", contentType("r.yml"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType("x.xlsx"))
	assert.Equal(t, "application/octet-stream", contentType("noext"))
}

var (
	_ Sink = (*LocalSink)(nil)
	_ Sink = (*S3Sink)(nil)
)
