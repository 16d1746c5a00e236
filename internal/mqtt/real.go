package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/inputd/internal/event"
)

// backlogCapacity bounds how many messages are held while disconnected.
const backlogCapacity = 64

// RealPublisher publishes to an actual MQTT broker. Messages that cannot be
// delivered because the broker is unreachable go into a bounded backlog and
// are replayed in order when the auto-reconnect succeeds.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *backlog
}

// NewRealPublisher creates a publisher connected to the given broker. The
// initial connect is given a timeout but failure is not fatal: paho keeps
// retrying in the background and the backlog covers the gap.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{pending: newBacklog(backlogCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("inputd").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			p.flushBacklog()
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, will keep retrying", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// PublishEvent sends one input event at QoS 0, not retained.
func (p *RealPublisher) PublishEvent(ev event.Event) error {
	payload, err := FormatEventPayload(ev)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	return p.send(TopicEvents, payload, 0, false)
}

// PublishSystem sends a lifecycle event at QoS 1 so startup and shutdown
// reliably reach the broker.
func (p *RealPublisher) PublishSystem(ev SystemEvent) error {
	payload, err := FormatSystemPayload(ev)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(TopicSystem, payload, 1, ev.Retained)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds
	return nil
}

// send delivers one message, parking it in the backlog when the broker is
// not reachable.
func (p *RealPublisher) send(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.pending.add(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish on %s: %w", topic, err)
	}
	return nil
}

// flushBacklog replays parked messages after a reconnect, oldest first.
func (p *RealPublisher) flushBacklog() {
	p.mu.Lock()
	msgs := p.pending.takeAll()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	log.Printf("mqtt: reconnected, replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay failed on %s: %v", m.topic, err)
		}
	}
}
