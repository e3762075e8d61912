package storage_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"webdesk/core/storage"
	"webdesk/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArchiver_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("StreamsContent", func(t *testing.T) {
		client := new(mocks.Client)
		var uploaded []byte
		client.On("PutObject", ctx, "bk", "migrations/run/users.jsonl", mock.Anything, int64(-1),
			minio.PutObjectOptions{ContentType: storage.ContentType}).
			Run(func(args mock.Arguments) {
				uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
			}).
			Return(minio.UploadInfo{Size: 18}, nil)

		a := storage.NewArchiver(client, "bk", zap.NewNop())
		err := a.Archive(ctx, "migrations/run/users.jsonl", func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, `{"id":1}`); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w, `{"id":2}`)
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, "{\"id\":1}\n{\"id\":2}\n", string(uploaded))
		client.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", ctx, "bk", "k", mock.Anything, int64(-1), mock.Anything).
			Run(func(args mock.Arguments) {
				_, _ = io.ReadAll(args.Get(3).(io.Reader))
			}).
			Return(minio.UploadInfo{}, errors.New("read failed"))

		a := storage.NewArchiver(client, "bk", zap.NewNop())
		err := a.Archive(ctx, "k", func(w io.Writer) error {
			return errors.New("query failed")
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "query failed")
	})

	t.Run("UploadError", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", ctx, "bk", "k", mock.Anything, int64(-1), mock.Anything).
			Return(minio.UploadInfo{}, errors.New("bucket gone"))

		a := storage.NewArchiver(client, "bk", zap.NewNop())
		err := a.Archive(ctx, "k", func(w io.Writer) error {
			_, err := w.Write([]byte("data\n"))
			return err
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket gone")
	})
}

func TestArchiver_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "bk").Return(true, nil)

		require.NoError(t, storage.NewArchiver(client, "bk", zap.NewNop()).EnsureBucket(ctx))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "bk").Return(false, nil)
		client.On("MakeBucket", ctx, "bk", minio.MakeBucketOptions{}).Return(nil)

		require.NoError(t, storage.NewArchiver(client, "bk", zap.NewNop()).EnsureBucket(ctx))
		client.AssertExpectations(t)
	})

	t.Run("CheckFails", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "bk").Return(false, errors.New("denied"))

		err := storage.NewArchiver(client, "bk", zap.NewNop()).EnsureBucket(ctx)
		assert.ErrorContains(t, err, "denied")
	})
}

func TestArchiver_ListAndRemove(t *testing.T) {
	ctx := context.Background()
	objects := func() <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, 2)
		ch <- minio.ObjectInfo{Key: "migrations/r1/a.jsonl"}
		ch <- minio.ObjectInfo{Key: "migrations/r1/b.jsonl"}
		close(ch)
		return ch
	}
	opts := minio.ListObjectsOptions{Prefix: "migrations/r1/", Recursive: true}

	client := new(mocks.Client)
	client.On("ListObjects", ctx, "bk", opts).Return(objects()).Once()
	client.On("ListObjects", ctx, "bk", opts).Return(objects()).Once()
	client.On("RemoveObject", ctx, "bk", mock.Anything, minio.RemoveObjectOptions{}).Return(nil)

	a := storage.NewArchiver(client, "bk", zap.NewNop())
	keys, err := a.List(ctx, "migrations/r1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations/r1/a.jsonl", "migrations/r1/b.jsonl"}, keys)

	removed, err := a.Remove(ctx, "migrations/r1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	client.AssertNumberOfCalls(t, "RemoveObject", 2)
}
