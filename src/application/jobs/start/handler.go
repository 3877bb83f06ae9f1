package start

import (
	"context"
	"encoding/json"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"stemsep/src/application/jobs/job_message"
	"stemsep/src/application/jobs/separate"
	"stemsep/src/application/publish"
	"stemsep/src/application/songs/entity"
	"stemsep/src/application/worker"
	"stemsep/src/lib/cerr"
	"stemsep/src/lib/werror"
)

var _ worker.MessageHandler = JobHandler{}

const JobType string = "start_job"
const ErrorMessage string = "Failed to start processing the stem separation"

func CreateJobMessage(songID string) (amqp.Publishing, error) {
	job := JobParams{
		SongIdentifier: job_message.SongIdentifier{
			SongID: songID,
		},
	}

	jsonBytes, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, werror.WrapError("Failed to marshal start job params", err)
	}

	return amqp.Publishing{
		Type: JobType,
		Body: jsonBytes,
	}, nil
}

type JobParams struct {
	job_message.SongIdentifier
}

func NewJobHandler(songStore entity.SongStore, publisher publish.Publisher) JobHandler {
	return JobHandler{
		songStore: songStore,
		publisher: publisher,
	}
}

type JobHandler struct {
	songStore entity.SongStore
	publisher publish.Publisher
}

func (JobHandler) JobType() string {
	return JobType
}

func (s JobHandler) HandleMessage(message []byte) error {
	params, err := unmarshalMessage(message)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("song_id", params.SongID)

	updater := func(song entity.Song) (entity.Song, error) {
		if song.Status != entity.RequestedStatus {
			return entity.Song{}, errctx.Error("Song is not in requested status, abort processing to be safe")
		}

		song.Status = entity.ProcessingStatus
		song.StatusMessage = "Preparing the track for separation"
		song.Progress = 10

		return song, nil
	}

	if err := s.songStore.UpdateSong(context.Background(), params.SongID, updater); err != nil {
		return errctx.Wrap(err).Error("Failed to set the song status")
	}

	log.WithField("song_id", params.SongID).Info("Publishing separate job message")
	nextJob, err := separate.CreateJobMessage(params.SongID)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to create separate job message")
	}

	if err := s.publisher.Publish(nextJob); err != nil {
		return errctx.Wrap(err).Error("Failed to publish next job message")
	}

	return nil
}

func unmarshalMessage(message []byte) (JobParams, error) {
	params := JobParams{}
	if err := json.Unmarshal(message, &params); err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	if params.SongID == "" {
		return JobParams{}, cerr.Field("job_params", params).Error("Missing song ID")
	}

	return params, nil
}
