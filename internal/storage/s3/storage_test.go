package awss3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/photo-pipeline/internal/storage"
)

type mockS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	err     error
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}

	data, ok := m.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.puts = append(m.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestStorage_Load(t *testing.T) {
	mock := &mockS3{objects: map[string][]byte{"originals/proj1/abc.jpg": []byte("jpeg")}}
	s := New(mock, "derivs")

	data, err := s.Load(context.Background(), "originals", "proj1/abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = s.Load(context.Background(), "originals", "missing.jpg")
	var nsk *types.NoSuchKey
	assert.ErrorAs(t, err, &nsk)
}

func TestStorage_Save(t *testing.T) {
	mock := &mockS3{}
	s := New(mock, "derivs")

	err := s.Save(context.Background(), "proj1/abc_web.webp", []byte("webp"), storage.SaveOptions{
		ContentType:  storage.ContentTypeWebP,
		CacheControl: storage.CacheImmutable,
		PublicRead:   true,
	})
	require.NoError(t, err)
	require.Len(t, mock.puts, 1)

	put := mock.puts[0]
	assert.Equal(t, "derivs", aws.ToString(put.Bucket))
	assert.Equal(t, "proj1/abc_web.webp", aws.ToString(put.Key))
	assert.Equal(t, "image/webp", aws.ToString(put.ContentType))
	assert.Equal(t, "public, max-age=31536000, immutable", aws.ToString(put.CacheControl))
	assert.Equal(t, types.ObjectCannedACLPublicRead, put.ACL)
	assert.Equal(t, int64(4), aws.ToInt64(put.ContentLength))
}

func TestStorage_SaveError(t *testing.T) {
	boom := errors.New("access denied")
	s := New(&mockS3{err: boom}, "derivs")

	err := s.Save(context.Background(), "k", nil, storage.SaveOptions{})
	assert.ErrorIs(t, err, boom)
}
