package integration_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"stemsep/src/application/convert/ffmpeg"
	"stemsep/src/application/download"
	"stemsep/src/application/hosting"
	"stemsep/src/application/integration_test/dummy"
	"stemsep/src/application/jobs/job_report"
	"stemsep/src/application/jobs/save_results"
	"stemsep/src/application/jobs/separate"
	"stemsep/src/application/jobs/start"
	"stemsep/src/application/pipeline"
	"stemsep/src/application/separation/audioshake"
	"stemsep/src/application/songs/entity"
	"stemsep/src/application/worker"
)

// separationBackend fakes the remote separation service: every task is
// processing on its first poll and completed on the next.
type separationBackend struct {
	mutex     sync.Mutex
	pollCount int
	apiKeys   []string
}

func (s *separationBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		s.apiKeys = append(s.apiKeys, r.Header.Get("x-api-key"))

		if r.Method == http.MethodPost && r.URL.Path == "/tasks" {
			_, _ = w.Write([]byte(`{"id": "task-789"}`))
			return
		}

		if r.Method == http.MethodGet && r.URL.Path == "/tasks/task-789" {
			s.pollCount++
			if s.pollCount == 1 {
				_, _ = w.Write([]byte(`{"id": "task-789", "status": "processing"}`))
				return
			}

			_, _ = w.Write([]byte(`{
				"id": "task-789",
				"status": "completed",
				"stems": [
					{"name": "vocals", "assets": [{"format": "wav", "url": "https://cdn.audioshake.test/vocals.wav"}]},
					{"name": "instrumental", "assets": [{"format": "wav", "url": "https://cdn.audioshake.test/instrumental.wav"}]}
				]
			}`))
			return
		}

		w.WriteHeader(http.StatusNotFound)
	})
}

var _ = Describe("Job chain", func() {
	var (
		sourceServer     *httptest.Server
		separationServer *httptest.Server
		backend          *separationBackend

		rabbitMQ  *dummy.RabbitMQ
		songStore *dummy.SongStore
		fileHost  *dummy.FileHost

		workerDone chan struct{}
	)

	BeforeEach(func() {
		sourceServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("cool_jamz"))
		}))

		backend = &separationBackend{}
		separationServer = httptest.NewServer(backend.handler())

		rabbitMQ = dummy.NewRabbitMQ()
		songStore = dummy.NewDummySongStore()
		fileHost = dummy.NewDummyFileHost()

		Expect(songStore.SetSong(context.Background(), entity.Song{
			ID:        "song-1",
			SourceURL: sourceServer.URL + "/jam.mp3",
			Status:    entity.RequestedStatus,
		})).To(Succeed())

		fetcher, err := download.NewFetcher(workingDir)
		Expect(err).NotTo(HaveOccurred())

		converter, err := ffmpeg.NewConverter(
			filepath.Join(workingDir, "converted"),
			"/somewhere/ffmpeg",
			"/somewhere/ffprobe",
			dummy.NewDummyFFmpegExecutor(),
		)
		Expect(err).NotTo(HaveOccurred())

		separator := audioshake.NewClient("sosecret", audioshake.Config{
			BaseURL:      separationServer.URL,
			PollInterval: time.Millisecond,
			Timeout:      5 * time.Second,
		}, separationServer.Client(), nil)

		orchestrator := pipeline.NewOrchestrator(converter, hosting.NewUploader(fileHost), separator, []string{"vocals", "instrumental"})

		handlers := []worker.MessageHandler{
			start.NewJobHandler(songStore, rabbitMQ),
			separate.NewJobHandler(songStore, fetcher, orchestrator, rabbitMQ),
			save_results.NewJobHandler(songStore),
		}

		queueWorker := worker.NewQueueWorker(rabbitMQ, "jobs", handlers, job_report.NewReporter(songStore))

		workerDone = make(chan struct{})
		go func() {
			defer GinkgoRecover()
			Expect(queueWorker.Start()).To(Succeed())
			close(workerDone)
		}()
	})

	AfterEach(func() {
		close(rabbitMQ.MessageChannel)
		Eventually(workerDone).Should(BeClosed())

		sourceServer.Close()
		separationServer.Close()
	})

	It("runs a song from requested to completed", func() {
		job, err := start.CreateJobMessage("song-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rabbitMQ.Publish(job)).To(Succeed())

		getSong := func() entity.Song {
			song, getErr := songStore.GetSong(context.Background(), "song-1")
			Expect(getErr).NotTo(HaveOccurred())
			return song
		}

		By("driving the song to completed through the three jobs")
		Eventually(func() entity.Status { return getSong().Status }, "10s").
			Should(Equal(entity.CompletedStatus))
		Eventually(rabbitMQ.AckCount, "10s").Should(Equal(3))
		Expect(rabbitMQ.NackCount()).To(Equal(0))

		By("recording the stem download URLs on the song")
		song := getSong()
		Expect(song.Progress).To(Equal(100))
		Expect(song.StemURLs).To(Equal(map[string]map[string]string{
			"vocals":       {"wav": "https://cdn.audioshake.test/vocals.wav"},
			"instrumental": {"wav": "https://cdn.audioshake.test/instrumental.wav"},
		}))

		By("publishing the converted track for the separation service to fetch")
		contents, ok := fileHost.GetFile(dummyFileHostURL(fileHost))
		Expect(ok).To(BeTrue())
		Expect(string(contents)).To(Equal("cool_jamz-wav"))

		By("authenticating every call to the separation service")
		for _, apiKey := range backend.apiKeys {
			Expect(apiKey).To(Equal("sosecret"))
		}
	})

	It("marks the song errored when the separation service is down", func() {
		separationServer.Close()

		job, err := start.CreateJobMessage("song-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rabbitMQ.Publish(job)).To(Succeed())

		// start job still succeeds, the separate job is the one that
		// can't reach the service
		Eventually(rabbitMQ.AckCount, "10s").Should(Equal(1))
		Eventually(rabbitMQ.NackCount, "10s").Should(Equal(1))

		song, err := songStore.GetSong(context.Background(), "song-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(song.Status).To(Equal(entity.ErrorStatus))
		Expect(song.StatusMessage).To(Equal(separate.ErrorMessage))
		Expect(song.StatusDebugLog).NotTo(BeEmpty())
	})
})

func dummyFileHostURL(fileHost *dummy.FileHost) string {
	Expect(fileHost.State).To(HaveLen(1))
	for url := range fileHost.State {
		return url
	}
	return ""
}
