package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . SongStore
type SongStore interface {
	GetSong(ctx context.Context, songID string) (Song, error)
	SetSong(ctx context.Context, song Song) error
	UpdateSong(ctx context.Context, songID string, updater func(Song) (Song, error)) error
}
