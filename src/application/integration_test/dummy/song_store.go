package dummy

import (
	"context"
	"sync"

	"stemsep/src/application/songs/entity"
)

var _ entity.SongStore = &SongStore{}

func NewDummySongStore() *SongStore {
	return &SongStore{
		Unavailable: false,
		State:       make(map[string]entity.Song),
	}
}

type SongStore struct {
	Unavailable bool
	State       map[string]entity.Song
	mutex       sync.RWMutex
}

func (s *SongStore) GetSong(_ context.Context, songID string) (entity.Song, error) {
	if s.Unavailable {
		return entity.Song{}, NetworkFailure
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	song, ok := s.State[songID]
	if !ok {
		return entity.Song{}, NotFound
	}

	return song, nil
}

func (s *SongStore) SetSong(_ context.Context, song entity.Song) error {
	if s.Unavailable {
		return NetworkFailure
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.State[song.ID] = song

	return nil
}

func (s *SongStore) UpdateSong(ctx context.Context, songID string, updater func(entity.Song) (entity.Song, error)) error {
	song, err := s.GetSong(ctx, songID)
	if err != nil {
		return err
	}

	updated, err := updater(song)
	if err != nil {
		return err
	}

	return s.SetSong(ctx, updated)
}
