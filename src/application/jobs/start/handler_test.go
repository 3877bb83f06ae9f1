package start_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"stemsep/src/application/integration_test/dummy"
	"stemsep/src/application/jobs/separate"
	"stemsep/src/application/jobs/start"
	"stemsep/src/application/publish/publishfakes"
	"stemsep/src/application/songs/entity"
)

var _ = Describe("Start job", func() {
	var (
		songStore *dummy.SongStore
		publisher *publishfakes.FakePublisher
		handler   start.JobHandler

		message []byte
	)

	BeforeEach(func() {
		songStore = dummy.NewDummySongStore()
		publisher = &publishfakes.FakePublisher{}
		handler = start.NewJobHandler(songStore, publisher)

		err := songStore.SetSong(context.Background(), entity.Song{
			ID:        "song-1",
			SourceURL: "https://files.stemsep.test/jam.mp3",
			Status:    entity.RequestedStatus,
		})
		Expect(err).NotTo(HaveOccurred())

		job, err := start.CreateJobMessage("song-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(job.Type).To(Equal(start.JobType))
		message = job.Body
	})

	Describe("Happy path", func() {
		JustBeforeEach(func() {
			Expect(handler.HandleMessage(message)).To(Succeed())
		})

		It("moves the song into processing", func() {
			song, err := songStore.GetSong(context.Background(), "song-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(song.Status).To(Equal(entity.ProcessingStatus))
			Expect(song.Progress).To(Equal(10))
			Expect(song.StatusMessage).NotTo(BeEmpty())
		})

		It("publishes the separate job next", func() {
			Expect(publisher.PublishCallCount()).To(Equal(1))

			published := publisher.PublishArgsForCall(0)
			Expect(published.Type).To(Equal(separate.JobType))

			params := separate.JobParams{}
			Expect(json.Unmarshal(published.Body, &params)).To(Succeed())
			Expect(params.SongID).To(Equal("song-1"))
		})
	})

	Describe("Song already past requested", func() {
		BeforeEach(func() {
			Expect(songStore.UpdateSong(context.Background(), "song-1", func(song entity.Song) (entity.Song, error) {
				song.Status = entity.ProcessingStatus
				return song, nil
			})).To(Succeed())
		})

		It("refuses to double-process", func() {
			err := handler.HandleMessage(message)
			Expect(err).To(HaveOccurred())
			Expect(publisher.PublishCallCount()).To(Equal(0))
		})
	})

	Describe("Unknown song", func() {
		It("fails", func() {
			job, err := start.CreateJobMessage("song-nope")
			Expect(err).NotTo(HaveOccurred())

			Expect(handler.HandleMessage(job.Body)).NotTo(Succeed())
		})
	})

	Describe("Broken publisher", func() {
		BeforeEach(func() {
			publisher.PublishReturns(dummy.NetworkFailure)
		})

		It("propagates the error", func() {
			Expect(handler.HandleMessage(message)).NotTo(Succeed())
		})
	})

	Describe("Malformed messages", func() {
		It("rejects junk", func() {
			Expect(handler.HandleMessage([]byte("not json"))).NotTo(Succeed())
		})

		It("rejects a missing song ID", func() {
			Expect(handler.HandleMessage([]byte(`{}`))).NotTo(Succeed())
		})
	})
})
