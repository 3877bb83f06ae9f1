package save_results

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"

	"stemsep/src/application/jobs/job_message"
	"stemsep/src/application/songs/entity"
	"stemsep/src/application/worker"
	"stemsep/src/lib/cerr"
	"stemsep/src/lib/werror"
)

var _ worker.MessageHandler = JobHandler{}

const JobType string = "save_results"
const ErrorMessage string = "Failed to save the separated stem links"

func CreateJobMessage(songID string, stemURLs map[string]map[string]string) (amqp.Publishing, error) {
	job := JobParams{
		SongIdentifier: job_message.SongIdentifier{
			SongID: songID,
		},
		StemURLs: stemURLs,
	}

	jsonBytes, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, werror.WrapError("Failed to marshal save results job params", err)
	}

	return amqp.Publishing{
		Type: JobType,
		Body: jsonBytes,
	}, nil
}

type JobParams struct {
	job_message.SongIdentifier
	StemURLs map[string]map[string]string `json:"stem_urls"`
}

func NewJobHandler(songStore entity.SongStore) JobHandler {
	return JobHandler{
		songStore: songStore,
	}
}

type JobHandler struct {
	songStore entity.SongStore
}

func (JobHandler) JobType() string {
	return JobType
}

func (s JobHandler) HandleMessage(message []byte) error {
	params := JobParams{}
	if err := json.Unmarshal(message, &params); err != nil {
		return cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("song_id", params.SongID)

	if params.SongID == "" {
		return errctx.Error("Missing song ID")
	}

	if len(params.StemURLs) == 0 {
		return errctx.Error("No stem URLs attached to the save job")
	}

	updater := func(song entity.Song) (entity.Song, error) {
		song.Status = entity.CompletedStatus
		song.StatusMessage = "Stem separation complete"
		song.Progress = 100
		song.StemURLs = params.StemURLs
		return song, nil
	}

	if err := s.songStore.UpdateSong(context.Background(), params.SongID, updater); err != nil {
		return errctx.Wrap(err).Error("Failed to write stem URLs to the song store")
	}

	return nil
}
