package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mrocca/tank-filler/internal/control"
)

const (
	publishTimeout = 5 * time.Second
	queueCapacity  = 256
)

// RealPublisher publishes to an actual MQTT broker. Messages that cannot be
// delivered while disconnected are queued and replayed on reconnect, so a
// broker outage never loses a fill-session trail or stalls the control tick.
type RealPublisher struct {
	client paho.Client

	mu    sync.Mutex
	queue *replayQueue
}

// NewRealPublisher creates a publisher connected to the given broker.
// The initial connect is allowed to fail; paho keeps retrying in the
// background and queued messages flow once the broker appears.
func NewRealPublisher(broker string) *RealPublisher {
	p := &RealPublisher{
		queue: newReplayQueue(queueCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("tank-filler").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			p.replay()
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: initial connect to %s pending, continuing in background", broker)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: connect to %s: %v (retrying in background)", broker, err)
	}

	return p
}

// Publish sends an actuator event to the broker (QoS 0), queuing it if the
// connection is down.
func (p *RealPublisher) Publish(event control.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(Topic, payload, 0, false)
}

// PublishSystem sends a system lifecycle event (QoS 1, delivery matters for
// shutdown and heartbeat records).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(TopicSystem, payload, 1, event.Retained)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds to flush in-flight messages
	return nil
}

func (p *RealPublisher) send(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.queue.push(queuedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.queue.len()
		p.mu.Unlock()
		return fmt.Errorf("disconnected, queued for replay (%d pending)", n)
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// replay flushes the queue after a (re)connect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.queue.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: reconnected, replaying %d queued messages", len(msgs))

	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			log.Printf("mqtt: replay to %s failed: %v", m.topic, token.Error())
		}
	}
}
