package media

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
)

func TestStaticURLs(t *testing.T) {
	ctx := context.Background()
	store := NewStatic("https://cdn.example.com/media/")

	up, err := store.UploadURL(ctx, 42, "image/PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, domain.PhotoKeyPrefix(42)))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "https://cdn.example.com/media/"+up.Key, up.URL)

	u, err := store.URL(ctx, "/users/42/photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/users/42/photos/a.jpg", u)

	_, err = store.UploadURL(ctx, 42, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestS3Presign(t *testing.T) {
	ctx := context.Background()
	client := s3.New(s3.Options{
		Region: "eu-west-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}, nil
		}),
	})
	store := NewS3FromClient(client, "photos-bucket")

	up, err := store.UploadURL(ctx, 7, "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, up.URL, "photos-bucket")
	assert.Contains(t, up.URL, "X-Amz-Signature=")
	assert.Contains(t, up.URL, "users/7/photos/")
	assert.Equal(t, 300, up.ExpiresIn)

	read, err := store.URL(ctx, up.Key)
	require.NoError(t, err)
	assert.Contains(t, read, "X-Amz-Signature=")

	_, err = store.UploadURL(ctx, 7, "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
