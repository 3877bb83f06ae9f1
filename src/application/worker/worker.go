package worker

import (
	"github.com/apex/log"
	"github.com/streadway/amqp"

	"stemsep/src/lib/cerr"
)

type MessageChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// FailureReporter records a failed job somewhere visible outside the
// worker logs. A nil reporter means failures are only logged.
type FailureReporter interface {
	ReportFailure(message amqp.Delivery, jobError error) error
}

type QueueWorker struct {
	channel   MessageChannel
	handlers  map[string]MessageHandler
	reporter  FailureReporter
	queueName string
}

func NewQueueWorker(channel MessageChannel, queueName string, handlers []MessageHandler, reporter FailureReporter) QueueWorker {
	handlerMap := map[string]MessageHandler{}
	for _, handler := range handlers {
		handlerMap[handler.JobType()] = handler
	}

	return QueueWorker{
		channel:   channel,
		queueName: queueName,
		handlers:  handlerMap,
		reporter:  reporter,
	}
}

func NewQueueWorkerFromConnection(conn *amqp.Connection, queueName string, handlers []MessageHandler, reporter FailureReporter) (QueueWorker, error) {
	rabbitChannel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return QueueWorker{}, cerr.Wrap(err).Error("Failed to get channel")
	}

	queue, err := rabbitChannel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		_ = rabbitChannel.Close()
		return QueueWorker{}, cerr.Wrap(err).Error("Failed to declare queue")
	}

	return NewQueueWorker(rabbitChannel, queue.Name, handlers, reporter), nil
}

func (q *QueueWorker) Start() error {
	log.Info("Starting worker")

	defer q.channel.Close()

	messageStream, err := q.channel.Consume(
		q.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		return cerr.Field("queue_name", q.queueName).
			Wrap(err).Error("Failed to start consuming from channel")
	}

	for message := range messageStream {
		logger := log.WithField("message_type", message.Type)
		logger.Info("Handling message")

		err := q.handleMessage(message)
		if err != nil {
			err = cerr.Field("message_type", message.Type).
				Wrap(err).Error("Failed to process message")

			cerr.Log(err)

			if q.reporter != nil {
				if reportErr := q.reporter.ReportFailure(message, err); reportErr != nil {
					cerr.Log(cerr.Wrap(reportErr).Error("Failed to report the job failure"))
				}
			}

			if err = message.Nack(false, false); err != nil {
				logger.Error("Failed to nack message")
			}
		} else {
			logger.Info("Successfully processed message")
			if err = message.Ack(false); err != nil {
				logger.Error("Failed to ack message")
			}
		}
	}

	return nil
}

func (q *QueueWorker) handleMessage(message amqp.Delivery) error {
	handler, ok := q.handlers[message.Type]
	if !ok {
		return cerr.Field("job_type", message.Type).Error("Unrecognized amqp job type")
	}

	return handler.HandleMessage(message.Body)
}
