package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"

	"macrocopilot/src/utils/errors"
)

// ObjectWriterFunc opens a writer for bucket/object. Closing the writer
// commits the object.
type ObjectWriterFunc func(ctx context.Context, bucket, object string) io.WriteCloser

// ArtifactUploader copies run outputs (returns CSV, plot, metrics files) to a
// bucket under prefix/<runId>/.
type ArtifactUploader struct {
	bucket    string
	prefix    string
	newWriter ObjectWriterFunc
	close     func() error
}

// NewGCSArtifactUploader uses application default credentials.
func NewGCSArtifactUploader(ctx context.Context, bucket, prefix string) (*ArtifactUploader, error) {
	if bucket == "" {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "storage bucket is not set")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	writerFn := func(ctx context.Context, bucket, object string) io.WriteCloser {
		return client.Bucket(bucket).Object(object).NewWriter(ctx)
	}
	uploader := NewArtifactUploader(bucket, prefix, writerFn)
	uploader.close = client.Close
	return uploader, nil
}

func NewArtifactUploader(bucket, prefix string, newWriter ObjectWriterFunc) *ArtifactUploader {
	return &ArtifactUploader{
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		newWriter: newWriter,
	}
}

// ObjectName is where a local file named base lands for the given run.
func (u *ArtifactUploader) ObjectName(runId, base string) string {
	return path.Join(u.prefix, runId, base)
}

// UploadFile copies a local file to prefix/runId/<file base name> and returns
// the object name.
func (u *ArtifactUploader) UploadFile(ctx context.Context, runId, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", localPath)
	}
	defer f.Close()

	object := u.ObjectName(runId, filepath.Base(localPath))
	writer := u.newWriter(ctx, u.bucket, object)

	if _, err := io.Copy(writer, f); err != nil {
		writer.Close()
		return "", errors.Wrapf(err, "uploading %s", localPath)
	}

	if err := writer.Close(); err != nil {
		return "", errors.Wrapf(err, "committing gs://%s/%s", u.bucket, object)
	}

	slog.Info("Uploaded artifact", "bucket", u.bucket, "object", object)
	return object, nil
}

// UploadDir uploads the regular files directly inside dir. Subdirectories
// are skipped.
func (u *ArtifactUploader) UploadDir(ctx context.Context, runId, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}
	var objects []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return objects, err
		}
		object, err := u.UploadFile(ctx, runId, filepath.Join(dir, entry.Name()))
		if err != nil {
			return objects, err
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func (u *ArtifactUploader) Close() error {
	if u.close == nil {
		return nil
	}
	return u.close()
}
