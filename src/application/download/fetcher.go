package download

import (
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/apex/log"

	"stemsep/src/lib/cerr"
	"stemsep/src/lib/working_dir"
)

func NewFetcher(workingDirStr string) (Fetcher, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return Fetcher{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return Fetcher{
		workingDir: workingDir,
	}, nil
}

// Fetcher pulls the original audio for a song over HTTP into a temp
// directory so the pipeline can run against a local file. The caller
// owns the returned cleanup function.
type Fetcher struct {
	workingDir working_dir.WorkingDir
}

func (f Fetcher) Fetch(sourceURL string) (string, func(), error) {
	errctx := cerr.Field("source_url", sourceURL)

	log.WithField("source_url", sourceURL).Info("Fetching the original track")

	tempDir, err := ioutil.TempDir(f.workingDir.TempDir(), "fetch-*")
	if err != nil {
		return "", nil, errctx.Wrap(err).Error("Failed to create temp dir to download to")
	}

	removeTempDirFn := func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.WithField("temp_dir", tempDir).Error("Failed to remove temp dir")
		}
	}

	outputPath := filepath.Join(tempDir, fileNameFromURL(sourceURL))

	if err := f.downloadFile(sourceURL, outputPath); err != nil {
		removeTempDirFn()
		return "", nil, errctx.Field("output_path", outputPath).
			Wrap(err).Error("Failed to download file")
	}

	return outputPath, removeTempDirFn, nil
}

func (f Fetcher) downloadFile(sourceURL string, outputPath string) error {
	resp, err := http.Get(sourceURL)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to fetch file from provided source")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerr.Field("status_code", resp.StatusCode).
			Error("Source host rejected the download")
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to create temp file")
	}
	defer out.Close()

	if _, err = io.Copy(out, resp.Body); err != nil {
		return cerr.Wrap(err).Error("Failed to write song contents out to file")
	}

	return nil
}

func fileNameFromURL(sourceURL string) string {
	fileName := path.Base(sourceURL)
	if fileName == "." || fileName == "/" {
		return "original.mp3"
	}

	return fileName
}
