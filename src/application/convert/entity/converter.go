package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// ConvertedAudio points at a WAV file in the canonical profile:
// 24-bit PCM, little-endian, stereo, 44.1kHz.
type ConvertedAudio struct {
	Path string
}

// ProgressObserver receives advisory percentage updates during a
// conversion. Values are monotonically non-decreasing within one run.
type ProgressObserver interface {
	OnProgress(percent float64)
}

type ProgressObserverFunc func(percent float64)

func (f ProgressObserverFunc) OnProgress(percent float64) {
	f(percent)
}

// Converter normalizes an arbitrary audio file to the canonical WAV
// profile. Callers are expected to have validated the input extension
// beforehand; the converter does not re-check it.
//counterfeiter:generate . Converter
type Converter interface {
	Convert(ctx context.Context, inputPath string, observer ProgressObserver) (ConvertedAudio, error)
}
