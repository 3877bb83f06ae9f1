package job_report

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"

	"stemsep/src/application/jobs/job_message"
	"stemsep/src/application/jobs/save_results"
	"stemsep/src/application/jobs/separate"
	"stemsep/src/application/jobs/start"
	"stemsep/src/application/songs/entity"
	"stemsep/src/application/worker"
	"stemsep/src/lib/cerr"
)

var _ worker.FailureReporter = Reporter{}

const fallbackErrorMessage = "Stem separation failed"

func NewReporter(songStore entity.SongStore) Reporter {
	return Reporter{
		songStore: songStore,
	}
}

// Reporter writes a failed job back onto the song record so the
// failure is visible outside the worker logs: error status, a
// user-facing message for the job that broke, and the raw error text
// as a debug log.
type Reporter struct {
	songStore entity.SongStore
}

func (r Reporter) ReportFailure(message amqp.Delivery, jobError error) error {
	params := job_message.SongIdentifier{}
	if err := json.Unmarshal(message.Body, &params); err != nil {
		return cerr.Field("message_body", string(message.Body)).
			Wrap(err).Error("Failed to unmarshal the failed job message")
	}

	if params.SongID == "" {
		return cerr.Field("message_body", string(message.Body)).
			Error("Failed job message carries no song ID to report on")
	}

	updater := func(song entity.Song) (entity.Song, error) {
		song.Status = entity.ErrorStatus
		song.StatusMessage = errorMessage(message.Type)
		song.StatusDebugLog = jobError.Error()

		return song, nil
	}

	if err := r.songStore.UpdateSong(context.Background(), params.SongID, updater); err != nil {
		return cerr.Field("song_id", params.SongID).
			Wrap(err).Error("Failed to mark the song as errored")
	}

	return nil
}

func errorMessage(jobType string) string {
	switch jobType {
	case start.JobType:
		return start.ErrorMessage
	case separate.JobType:
		return separate.ErrorMessage
	case save_results.JobType:
		return save_results.ErrorMessage
	default:
		return fallbackErrorMessage
	}
}
