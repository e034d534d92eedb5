package minio

import (
	"context"
	"io"
	"regexp"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	putBucket string
	putKey    string
	putBody   []byte
	putErr    error
	removed   []string
}

func (f *fakeObjectAPI) PutObject(_ context.Context, bucket, object string, reader io.Reader, _ int64, _ miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	if f.putErr != nil {
		return miniogo.UploadInfo{}, f.putErr
	}
	f.putBucket = bucket
	f.putKey = object
	f.putBody, _ = io.ReadAll(reader)
	return miniogo.UploadInfo{Bucket: bucket, Key: object}, nil
}

func (f *fakeObjectAPI) GetObject(context.Context, string, string, miniogo.GetObjectOptions) (*miniogo.Object, error) {
	return nil, nil
}

func (f *fakeObjectAPI) RemoveObject(_ context.Context, _ string, object string, _ miniogo.RemoveObjectOptions) error {
	f.removed = append(f.removed, object)
	return nil
}

func (f *fakeObjectAPI) BucketExists(context.Context, string) (bool, error) { return true, nil }

func (f *fakeObjectAPI) MakeBucket(context.Context, string, miniogo.MakeBucketOptions) error {
	return nil
}

var keyPattern = regexp.MustCompile(`^contracts/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}\.txt$`)

func TestArchive(t *testing.T) {
	api := &fakeObjectAPI{}
	store := newDocumentStoreWithAPI(api, "contracts", nil)

	key, err := store.Archive(context.Background(), "Lease agreement. APR: 6.9%.")
	require.NoError(t, err)

	assert.Regexp(t, keyPattern, key)
	assert.Equal(t, "contracts", api.putBucket)
	assert.Equal(t, key, api.putKey)
	assert.Equal(t, "Lease agreement. APR: 6.9%.", string(api.putBody))
}

func TestArchiveKeysUnique(t *testing.T) {
	api := &fakeObjectAPI{}
	store := newDocumentStoreWithAPI(api, "contracts", nil)

	first, err := store.Archive(context.Background(), "text")
	require.NoError(t, err)
	second, err := store.Archive(context.Background(), "text")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDelete(t *testing.T) {
	api := &fakeObjectAPI{}
	store := newDocumentStoreWithAPI(api, "contracts", nil)

	require.NoError(t, store.Delete(context.Background(), "contracts/2026/08/01/key.txt"))
	assert.Equal(t, []string{"contracts/2026/08/01/key.txt"}, api.removed)
}
