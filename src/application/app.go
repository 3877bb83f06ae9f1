package application

import (
	"fmt"
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"stemsep/src/application/convert/ffmpeg"
	"stemsep/src/application/download"
	"stemsep/src/application/executor"
	"stemsep/src/application/hosting"
	hostingentity "stemsep/src/application/hosting/entity"
	hostingstore "stemsep/src/application/hosting/store"
	"stemsep/src/application/jobs/job_report"
	"stemsep/src/application/jobs/save_results"
	"stemsep/src/application/jobs/separate"
	"stemsep/src/application/jobs/start"
	"stemsep/src/application/pipeline"
	"stemsep/src/application/publish"
	"stemsep/src/application/separation/audioshake"
	songsentity "stemsep/src/application/songs/entity"
	songsstore "stemsep/src/application/songs/store"
	"stemsep/src/application/worker"
	"stemsep/src/lib/env"
)

func getEnvOrPanic(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	return val
}

func ensureOk(err error) {
	if err != nil {
		panic(err)
	}
}

type App struct {
	workers []worker.QueueWorker
}

func NewApp() App {
	rabbitURL := getEnvOrPanic("RABBITMQ_URL")
	consumerConn, err := amqp.Dial(rabbitURL)
	ensureOk(err)
	producerConn, err := amqp.Dial(rabbitURL)
	ensureOk(err)

	workers := []worker.QueueWorker{}
	numWorkers := getNumWorkers()
	for i := 0; i < numWorkers; i++ {
		workers = append(workers, newWorker(consumerConn, producerConn))
	}

	return App{
		workers: workers,
	}
}

func (a *App) Start() {
	for _, queueWorker := range a.workers {
		go func(worker worker.QueueWorker) {
			err := worker.Start()
			if err != nil {
				log.Error("Failed to start worker!")
			}
		}(queueWorker)
	}
}

func getNumWorkers() int {
	numWorkersStr := getEnvOrPanic("NUM_WORKERS")
	numWorkers, err := strconv.Atoi(numWorkersStr)
	ensureOk(err)
	return numWorkers
}

func queueName() string {
	return getEnvOrPanic("RABBITMQ_QUEUE_NAME")
}

func newWorker(consumerConn *amqp.Connection, producerConn *amqp.Connection) worker.QueueWorker {
	publisher := newPublisher(producerConn)
	songStore := newSongStore()

	queueWorker, err := worker.NewQueueWorkerFromConnection(
		consumerConn,
		queueName(),
		[]worker.MessageHandler{
			start.NewJobHandler(songStore, publisher),
			newSeparateJobHandler(songStore, publisher),
			save_results.NewJobHandler(songStore),
		},
		job_report.NewReporter(songStore))
	ensureOk(err)
	return queueWorker
}

func newPublisher(conn *amqp.Connection) publish.RabbitMQPublisher {
	publisher, err := publish.NewRabbitMQPublisher(conn, queueName())
	ensureOk(err)
	return publisher
}

func newSongStore() songsentity.SongStore {
	return songsstore.NewDynamoDBSongStore(env.Get())
}

func newFileHost() hostingentity.FileHost {
	switch os.Getenv("FILE_HOST") {
	case "google":
		jsonKey := getEnvOrPanic("GOOGLE_CLOUD_KEY")
		bucketName := getEnvOrPanic("GOOGLE_CLOUD_STORAGE_BUCKET_NAME")

		fileHost, err := hostingstore.NewGoogleFileHost(jsonKey, bucketName)
		ensureOk(err)
		return fileHost
	default:
		return hostingstore.NewZeroXZeroHost(os.Getenv("FILE_HOST_ENDPOINT"), nil)
	}
}

func newSeparateJobHandler(songStore songsentity.SongStore, publisher publish.Publisher) separate.JobHandler {
	fetchWorkingDir := getEnvOrPanic("FETCH_WORKING_DIR_PATH")
	err := os.MkdirAll(fetchWorkingDir, os.ModePerm)
	ensureOk(err)

	fetcher, err := download.NewFetcher(fetchWorkingDir)
	ensureOk(err)

	converter, err := ffmpeg.NewConverter(
		getEnvOrPanic("CONVERTED_DIR_PATH"),
		getEnvOrPanic("FFMPEG_BIN_PATH"),
		getEnvOrPanic("FFPROBE_BIN_PATH"),
		executor.BinaryFileExecutor{},
	)
	ensureOk(err)

	uploader := hosting.NewUploader(newFileHost())

	separator := audioshake.NewClient(
		getEnvOrPanic("AUDIOSHAKE_API_KEY"),
		audioshake.Config{},
		nil,
		nil,
	)

	orchestrator := pipeline.NewOrchestrator(converter, uploader, separator, audioshake.DefaultStems)

	return separate.NewJobHandler(songStore, fetcher, orchestrator, publisher)
}
