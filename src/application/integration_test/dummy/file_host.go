package dummy

import (
	"context"
	"fmt"

	"stemsep/src/application/hosting/entity"
)

var _ entity.FileHost = &FileHost{}

const dummyHostBase = "https://files.stemsep.test"

func NewDummyFileHost() *FileHost {
	return &FileHost{
		Unavailable: false,
		State:       make(map[string][]byte),
	}
}

type FileHost struct {
	Unavailable bool
	State       map[string][]byte
}

func (f *FileHost) PublishFile(_ context.Context, fileName string, contents []byte) (string, error) {
	if f.Unavailable {
		return "", NetworkFailure
	}

	hostedURL := fmt.Sprintf("%s/%s", dummyHostBase, fileName)
	f.State[hostedURL] = append([]byte{}, contents...)

	return hostedURL, nil
}

func (f *FileHost) GetFile(url string) ([]byte, bool) {
	contents, ok := f.State[url]
	return contents, ok
}
