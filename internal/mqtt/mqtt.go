package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Message is a broker payload with its delivery flags.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Config describes the broker connection. Birth is published on every
// (re)connect; Will is registered with the broker and fires when the
// bridge drops off ungracefully.
type Config struct {
	BrokerURL string
	Username  string
	Password  string
	ClientID  string
	Birth     *Message
	Will      *Message
}

// Client wraps a paho connection with subscription bookkeeping that
// survives reconnects.
type Client struct {
	client paho.Client
	mu     sync.Mutex
	subs   map[string]map[int]func([]byte)
	nextID int
}

// Connect dials the broker and blocks until the session is up.
func Connect(cfg Config) (*Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "dknhome-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Will != nil {
		opts.SetBinaryWill(cfg.Will.Topic, cfg.Will.Payload, 1, cfg.Will.Retained)
	}

	c := &Client{subs: make(map[string]map[int]func([]byte))}
	opts.SetDefaultPublishHandler(c.dispatch)
	// OnConnect may fire before Connect returns, so it must use the
	// paho client it is handed rather than c.client.
	opts.OnConnect = func(pc paho.Client) {
		c.resubscribeAll(pc)
		if cfg.Birth != nil {
			pc.Publish(cfg.Birth.Topic, 1, cfg.Birth.Retained, cfg.Birth.Payload)
		}
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", token.Error())
	}
	c.client = client
	return c, nil
}

// Publish sends a payload and waits for the broker handoff.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if token := c.client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Subscribe registers a callback for a topic and returns its remover.
// Multiple callbacks may share a topic; the broker subscription is
// made once and dropped when the last callback is removed.
func (c *Client) Subscribe(topic string, cb func([]byte)) (func(), error) {
	id, first := c.addCallback(topic, cb)
	if first {
		if token := c.client.Subscribe(topic, 0, nil); token.Wait() && token.Error() != nil {
			c.removeCallback(topic, id)
			return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}

	return func() {
		if last := c.removeCallback(topic, id); last {
			_ = c.client.Unsubscribe(topic).Wait()
		}
	}, nil
}

// Disconnect closes the session, allowing in-flight work to finish.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) addCallback(topic string, cb func([]byte)) (id int, first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int]func([]byte))
	}
	id = c.nextID
	c.nextID++
	c.subs[topic][id] = cb
	return id, len(c.subs[topic]) == 1
}

func (c *Client) removeCallback(topic string, id int) (last bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	callbacks := c.subs[topic]
	if callbacks == nil {
		return false
	}
	delete(callbacks, id)
	if len(callbacks) == 0 {
		delete(c.subs, topic)
		return true
	}
	return false
}

func (c *Client) dispatch(_ paho.Client, msg paho.Message) {
	c.deliver(msg.Topic(), msg.Payload())
}

func (c *Client) deliver(topic string, payload []byte) {
	c.mu.Lock()
	callbacks := c.subs[topic]
	list := make([]func([]byte), 0, len(callbacks))
	for _, cb := range callbacks {
		list = append(list, cb)
	}
	c.mu.Unlock()
	for _, cb := range list {
		cb(payload)
	}
}

func (c *Client) resubscribeAll(pc paho.Client) {
	c.mu.Lock()
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.mu.Unlock()
	for _, topic := range topics {
		_ = pc.Subscribe(topic, 0, nil).Wait()
	}
}
