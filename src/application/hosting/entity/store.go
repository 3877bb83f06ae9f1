package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// FileHost publishes bytes somewhere publicly fetchable and returns
// the resulting URL. Hosts are single-attempt: a failed publish is
// reported as-is, never retried here.
//counterfeiter:generate . FileHost
type FileHost interface {
	PublishFile(ctx context.Context, fileName string, contents []byte) (string, error)
}
