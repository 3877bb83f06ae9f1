package separate

import (
	"context"
	"encoding/json"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"stemsep/src/application/audio"
	"stemsep/src/application/download"
	"stemsep/src/application/jobs/job_message"
	"stemsep/src/application/jobs/save_results"
	"stemsep/src/application/pipeline"
	"stemsep/src/application/publish"
	separationentity "stemsep/src/application/separation/entity"
	"stemsep/src/application/songs/entity"
	"stemsep/src/application/worker"
	"stemsep/src/lib/cerr"
	"stemsep/src/lib/werror"
)

var _ worker.MessageHandler = JobHandler{}

const JobType string = "separate_song"
const ErrorMessage string = "Failed to separate the track into stems"

func CreateJobMessage(songID string) (amqp.Publishing, error) {
	job := JobParams{
		SongIdentifier: job_message.SongIdentifier{
			SongID: songID,
		},
	}

	jsonBytes, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, werror.WrapError("Failed to marshal separate job params", err)
	}

	return amqp.Publishing{
		Type: JobType,
		Body: jsonBytes,
	}, nil
}

type JobParams struct {
	job_message.SongIdentifier
}

func NewJobHandler(songStore entity.SongStore, fetcher download.Fetcher, orchestrator pipeline.Orchestrator, publisher publish.Publisher) JobHandler {
	return JobHandler{
		songStore:    songStore,
		fetcher:      fetcher,
		orchestrator: orchestrator,
		publisher:    publisher,
	}
}

type JobHandler struct {
	songStore    entity.SongStore
	fetcher      download.Fetcher
	orchestrator pipeline.Orchestrator
	publisher    publish.Publisher
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

	song, err := s.songStore.GetSong(context.Background(), params.SongID)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to get song from song store")
	}

	if song.SourceURL == "" {
		return errctx.Error("Song record has no source URL to fetch")
	}

	if err := s.updateProgress(params.SongID, "Separating the track into stems", 30); err != nil {
		return errctx.Wrap(err).Error("Failed to update the song progress")
	}

	localPath, cleanup, err := s.fetcher.Fetch(song.SourceURL)
	if err != nil {
		return errctx.Field("source_url", song.SourceURL).
			Wrap(err).Error("Failed to fetch the original track")
	}
	defer cleanup()

	if !audio.IsSupportedFile(localPath) {
		return errctx.Field("local_path", localPath).
			Error("Fetched file is not a supported audio format")
	}

	audioFile, err := audio.NewFile(localPath)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to inspect the fetched track")
	}

	observers := pipeline.Observers{
		SeparationStatus: separationentity.StatusObserverFunc(func(status separationentity.TaskStatus) {
			log.WithFields(log.Fields{
				"song_id": params.SongID,
				"status":  status,
			}).Info("Separation task status")
		}),
	}

	stems, err := s.orchestrator.Run(context.Background(), audioFile, observers)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to run the separation pipeline")
	}

	if err := s.publishSaveResultsMessage(params.SongID, stems); err != nil {
		return errctx.Wrap(err).Error("Failed to publish the next job message")
	}

	return nil
}

func (s JobHandler) updateProgress(songID string, statusMessage string, progress int) error {
	updater := func(song entity.Song) (entity.Song, error) {
		song.StatusMessage = statusMessage
		song.Progress = progress
		return song, nil
	}

	return s.songStore.UpdateSong(context.Background(), songID, updater)
}

func (s JobHandler) publishSaveResultsMessage(songID string, stems []separationentity.StemResult) error {
	stemURLs := map[string]map[string]string{}
	for _, stem := range stems {
		stemURLs[stem.Name] = stem.URLs
	}

	log.WithField("song_id", songID).Info("Publishing save results job message")
	job, err := save_results.CreateJobMessage(songID, stemURLs)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to create save results job params")
	}

	if err := s.publisher.Publish(job); err != nil {
		return cerr.Wrap(err).Error("Failed to publish next job message")
	}

	return nil
}
