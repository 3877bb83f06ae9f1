package dummy

import (
	"sync"

	"github.com/streadway/amqp"

	"stemsep/src/application/publish"
	"stemsep/src/application/worker"
)

var _ publish.Publisher = &RabbitMQ{}
var _ worker.MessageChannel = &RabbitMQ{}
var _ amqp.Acknowledger = &RabbitMQ{}

type RabbitMQ struct {
	Unavailable    bool
	MessageChannel chan amqp.Delivery

	mutex       sync.Mutex
	ackCounter  int
	nackCounter int
}

func NewRabbitMQ() *RabbitMQ {
	return &RabbitMQ{
		Unavailable:    false,
		MessageChannel: make(chan amqp.Delivery, 100),
	}
}

func (r *RabbitMQ) Publish(msg amqp.Publishing) error {
	if r.Unavailable {
		return NetworkFailure
	}

	r.MessageChannel <- amqp.Delivery{
		Acknowledger:    r,
		ContentType:     msg.ContentType,
		ContentEncoding: msg.ContentEncoding,
		DeliveryMode:    msg.DeliveryMode,
		Timestamp:       msg.Timestamp,
		Type:            msg.Type,
		Body:            msg.Body,
	}
	return nil
}

func (r *RabbitMQ) Consume(_ string, _ string, _ bool, _ bool, _ bool, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	if r.Unavailable {
		return nil, NetworkFailure
	}

	return r.MessageChannel, nil
}

func (r *RabbitMQ) Close() error {
	return nil
}

func (r *RabbitMQ) Ack(_ uint64, _ bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.ackCounter++
	return nil
}

func (r *RabbitMQ) Nack(_ uint64, _ bool, _ bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.nackCounter++
	return nil
}

func (r *RabbitMQ) Reject(_ uint64, _ bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.nackCounter++
	return nil
}

func (r *RabbitMQ) AckCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.ackCounter
}

func (r *RabbitMQ) NackCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.nackCounter
}
