package job_report_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/streadway/amqp"

	"stemsep/src/application/integration_test/dummy"
	"stemsep/src/application/jobs/job_report"
	"stemsep/src/application/jobs/save_results"
	"stemsep/src/application/jobs/separate"
	"stemsep/src/application/jobs/start"
	"stemsep/src/application/songs/entity"
)

var _ = Describe("Failure reporter", func() {
	var (
		songStore *dummy.SongStore
		reporter  job_report.Reporter
	)

	BeforeEach(func() {
		songStore = dummy.NewDummySongStore()
		reporter = job_report.NewReporter(songStore)

		Expect(songStore.SetSong(context.Background(), entity.Song{
			ID:            "song-1",
			SourceURL:     "https://files.stemsep.test/jam.mp3",
			Status:        entity.ProcessingStatus,
			StatusMessage: "Separating the track into stems",
			Progress:      30,
		})).To(Succeed())
	})

	getSong := func() entity.Song {
		song, err := songStore.GetSong(context.Background(), "song-1")
		Expect(err).NotTo(HaveOccurred())
		return song
	}

	Describe("Reporting a failed job", func() {
		jobTypeMessages := map[string]string{
			start.JobType:        start.ErrorMessage,
			separate.JobType:     separate.ErrorMessage,
			save_results.JobType: save_results.ErrorMessage,
		}

		It("marks the song errored with the message for the job that broke", func() {
			for jobType, expectedMessage := range jobTypeMessages {
				Expect(songStore.SetSong(context.Background(), entity.Song{
					ID:     "song-1",
					Status: entity.ProcessingStatus,
				})).To(Succeed())

				err := reporter.ReportFailure(amqp.Delivery{
					Type: jobType,
					Body: []byte(`{"song_id": "song-1"}`),
				}, dummy.NetworkFailure)
				Expect(err).NotTo(HaveOccurred())

				song := getSong()
				Expect(song.Status).To(Equal(entity.ErrorStatus), jobType)
				Expect(song.StatusMessage).To(Equal(expectedMessage), jobType)
			}
		})

		It("keeps the raw error text as a debug log", func() {
			Expect(reporter.ReportFailure(amqp.Delivery{
				Type: separate.JobType,
				Body: []byte(`{"song_id": "song-1"}`),
			}, dummy.NetworkFailure)).To(Succeed())

			Expect(getSong().StatusDebugLog).To(Equal(dummy.NetworkFailure.Error()))
		})

		It("falls back to a generic message for an unrecognized job type", func() {
			Expect(reporter.ReportFailure(amqp.Delivery{
				Type: "mystery_job",
				Body: []byte(`{"song_id": "song-1"}`),
			}, dummy.NetworkFailure)).To(Succeed())

			song := getSong()
			Expect(song.Status).To(Equal(entity.ErrorStatus))
			Expect(song.StatusMessage).NotTo(BeEmpty())
		})
	})

	Describe("Unreportable failures", func() {
		It("rejects a message that isn't JSON", func() {
			err := reporter.ReportFailure(amqp.Delivery{
				Type: separate.JobType,
				Body: []byte("not json"),
			}, dummy.NetworkFailure)
			Expect(err).To(HaveOccurred())
			Expect(getSong().Status).To(Equal(entity.ProcessingStatus))
		})

		It("rejects a message without a song ID", func() {
			err := reporter.ReportFailure(amqp.Delivery{
				Type: separate.JobType,
				Body: []byte(`{}`),
			}, dummy.NetworkFailure)
			Expect(err).To(HaveOccurred())
		})

		It("fails when the song store is down", func() {
			songStore.Unavailable = true

			err := reporter.ReportFailure(amqp.Delivery{
				Type: separate.JobType,
				Body: []byte(`{"song_id": "song-1"}`),
			}, dummy.NetworkFailure)
			Expect(err).To(HaveOccurred())
		})
	})
})
