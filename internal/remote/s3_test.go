package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Endpoint:  endpoint,
		Region:    "us-east-1",
		Bucket:    "journal",
		Prefix:    "appDataFolder",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
}

func TestS3Store_CreateObject(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   []byte
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	st, err := NewS3Store(context.Background(), testS3Config(ts.URL))
	require.NoError(t, err)

	payload := []byte(`{"version":1}`)
	key, err := st.CreateObject(context.Background(), "100_abc.dat", payload)
	require.NoError(t, err)

	assert.Equal(t, "appDataFolder/100_abc.dat", key)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/journal/appDataFolder/100_abc.dat", gotPath)
	assert.Equal(t, payload, gotBody)
}

func TestS3Store_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	st, err := NewS3Store(context.Background(), testS3Config(ts.URL))
	require.NoError(t, err)

	_, err = st.CreateObject(context.Background(), "1_a.dat", []byte("x"))
	require.ErrorIs(t, err, ErrIO)
	assert.Equal(t, int32(1), calls.Load())
}

func TestS3Store_InvalidName(t *testing.T) {
	st, err := NewS3Store(context.Background(), testS3Config("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = st.CreateObject(context.Background(), "../escape", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestNewS3Store_Options(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	c := testS3Config("http://minio:9000")
	c.Region = "eu-central-1"
	_, err := NewS3Store(context.Background(), c)
	require.NoError(t, err)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, 1, opts.RetryMaxAttempts)
}

func TestNewS3Store_LoadConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	boom := errors.New("no config")
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}

	_, err := NewS3Store(context.Background(), testS3Config(""))
	require.ErrorIs(t, err, boom)
}
