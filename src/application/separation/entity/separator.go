package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// StatusObserver receives the task status after every poll. Updates
// carry overwritable single-line display semantics: each one replaces
// the previous rendering.
type StatusObserver interface {
	OnStatus(status TaskStatus)
}

type StatusObserverFunc func(status TaskStatus)

func (f StatusObserverFunc) OnStatus(status TaskStatus) {
	f(status)
}

// Separator submits a remote stem separation task for an HTTPS
// reachable audio URL and blocks until the task reaches a terminal
// state or the client-side budget runs out.
//counterfeiter:generate . Separator
type Separator interface {
	SeparateStems(ctx context.Context, audioURL string, stems []string, observer StatusObserver) ([]StemResult, error)
}
