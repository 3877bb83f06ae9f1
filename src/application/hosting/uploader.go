package hosting

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"stemsep/src/application/hosting/entity"
	"stemsep/src/lib/cerr"
)

func NewUploader(fileHost entity.FileHost) Uploader {
	return Uploader{
		fileHost: fileHost,
	}
}

// Uploader reads a local file fully into memory and publishes it under
// its base name through the configured file host.
type Uploader struct {
	fileHost entity.FileHost
}

func (u Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	errctx := cerr.Field("local_path", localPath)

	log.WithField("local_path", localPath).Info("Reading file to memory for upload")
	contents, err := os.ReadFile(localPath)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to read the local file")
	}

	hostedURL, err := u.fileHost.PublishFile(ctx, filepath.Base(localPath), contents)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to publish the file")
	}

	log.WithFields(log.Fields{
		"local_path": localPath,
		"hosted_url": hostedURL,
	}).Info("File published")

	return hostedURL, nil
}
