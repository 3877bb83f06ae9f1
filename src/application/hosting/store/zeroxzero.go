package store

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/apex/log"

	"stemsep/src/application/hosting/entity"
	"stemsep/src/lib/cerr"
)

var _ entity.FileHost = ZeroXZeroHost{}

const DefaultZeroXZeroEndpoint = "https://0x0.st"

const uploadContentType = "audio/wav"

func NewZeroXZeroHost(endpoint string, httpClient *http.Client) ZeroXZeroHost {
	if endpoint == "" {
		endpoint = DefaultZeroXZeroEndpoint
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return ZeroXZeroHost{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// ZeroXZeroHost publishes files to the 0x0.st temporary file host.
// The response body is the hosted URL, valid for the host's retention
// window.
type ZeroXZeroHost struct {
	endpoint   string
	httpClient *http.Client
}

func (z ZeroXZeroHost) PublishFile(ctx context.Context, fileName string, contents []byte) (string, error) {
	errctx := cerr.Field("file_name", fileName).Field("endpoint", z.endpoint)

	body, contentType, err := encodeMultipartUpload(fileName, contents)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to encode the upload form")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint, body)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to create the upload request")
	}
	request.Header.Set("Content-Type", contentType)

	log.WithFields(log.Fields{
		"file_name": fileName,
		"endpoint":  z.endpoint,
	}).Info("Uploading file to temporary host")

	response, err := z.httpClient.Do(request)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to upload the file")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to read the upload response")
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", errctx.Field("status_code", response.StatusCode).
			Field("response_body", string(responseBody)).
			Error("Upload was rejected by the host")
	}

	hostedURL := strings.TrimSpace(string(responseBody))

	// the next stage requires a publicly fetchable HTTPS source, so a
	// host configured over plain HTTP gets upgraded string-wise
	if strings.HasPrefix(hostedURL, "http://") {
		hostedURL = "https://" + strings.TrimPrefix(hostedURL, "http://")
	}

	if !strings.HasPrefix(hostedURL, "https://") {
		return "", errctx.Field("hosted_url", hostedURL).
			Error("Host returned a URL that isn't HTTPS reachable")
	}

	return hostedURL, nil
}

func encodeMultipartUpload(fileName string, contents []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", uploadContentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", cerr.Wrap(err).Error("Failed to create the file form part")
	}

	if _, err := part.Write(contents); err != nil {
		return nil, "", cerr.Wrap(err).Error("Failed to write the file into the form")
	}

	if err := form.Close(); err != nil {
		return nil, "", cerr.Wrap(err).Error("Failed to finalize the form")
	}

	return body, form.FormDataContentType(), nil
}
