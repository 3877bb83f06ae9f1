package audio

import (
	"os"
	"path/filepath"
	"strings"

	"stemsep/src/lib/cerr"
)

var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".aac":  {},
	".ogg":  {},
	".m4a":  {},
	".wma":  {},
	".aiff": {},
	".alac": {},
	".opus": {},
}

// SupportedExtensions returns the audio container formats that can be
// fed into the pipeline, without the leading dot.
func SupportedExtensions() []string {
	extensions := make([]string, 0, len(supportedExtensions))
	for extension := range supportedExtensions {
		extensions = append(extensions, strings.TrimPrefix(extension, "."))
	}

	return extensions
}

func IsSupportedFile(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	_, ok := supportedExtensions[extension]
	return ok
}

// File is a local audio file that exists before the pipeline starts.
type File struct {
	Path      string
	BaseName  string
	Extension string
	Size      int64
}

func NewFile(path string) (File, error) {
	errctx := cerr.Field("path", path)

	info, err := os.Stat(path)
	if err != nil {
		return File{}, errctx.Wrap(err).Error("Failed to stat audio file")
	}

	if info.IsDir() {
		return File{}, errctx.Error("Path refers to a directory, not an audio file")
	}

	fileName := filepath.Base(path)
	extension := strings.ToLower(filepath.Ext(fileName))

	return File{
		Path:      path,
		BaseName:  strings.TrimSuffix(fileName, filepath.Ext(fileName)),
		Extension: strings.TrimPrefix(extension, "."),
		Size:      info.Size(),
	}, nil
}
