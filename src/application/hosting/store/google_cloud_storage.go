package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"stemsep/src/application/hosting/entity"
	"stemsep/src/lib/werror"
)

var _ entity.FileHost = GoogleFileHost{}

const GOOGLE_STORAGE_HOST = "https://storage.googleapis.com"

// GoogleFileHost publishes files as publicly readable objects in a
// Google Cloud Storage bucket. Unlike the 0x0.st host there is no
// retention window, objects stay until removed.
type GoogleFileHost struct {
	storageClient *storage.Client
	bucketName    string
}

func NewGoogleFileHost(jsonKey string, bucketName string) (GoogleFileHost, error) {
	googleStorageClient, err := storage.NewClient(context.Background(), option.WithCredentialsJSON([]byte(jsonKey)))

	if err != nil {
		return GoogleFileHost{}, werror.WrapError("Failed to create Google Cloud Storage client", err)
	}

	return GoogleFileHost{
		storageClient: googleStorageClient,
		bucketName:    bucketName,
	}, nil
}

func (g GoogleFileHost) PublishFile(ctx context.Context, fileName string, contents []byte) (hostedURL string, err error) {
	objectHandle := g.storageClient.Bucket(g.bucketName).Object(fileName)

	writer := objectHandle.NewWriter(ctx)
	defer func() {
		closeErr := writer.Close()
		if err == nil && closeErr != nil {
			err = werror.WrapError("Error occurred when closing the upload stream", closeErr)
		}
	}()

	if _, err = writer.Write(contents); err != nil {
		return "", werror.WrapError("Error occurred when uploading file", err)
	}

	return fmt.Sprintf("%s/%s/%s", GOOGLE_STORAGE_HOST, g.bucketName, fileName), nil
}
