package mqtt

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// DefaultTimeout bounds connect, publish and subscribe round trips.
const DefaultTimeout = 3 * time.Second

// ErrTimeout indicates the broker did not acknowledge in time.
var ErrTimeout = errors.New("mqtt timeout")

// Queue wraps MQTT client.
type Queue struct {
	Client      paho.Client
	TopicPrefix string
	Timeout     time.Duration

	subsLock sync.RWMutex
	subs     map[string][]*Subscription
}

// Subscription is a subscribed topic.
type Subscription struct {
	queue   *Queue
	topic   string
	handler Handler
}

// DefaultClientID derives a stable client id for the machine and role.
func DefaultClientID(role string) string {
	id, err := machineid.ProtectedID("dualcore")
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		host, _ := os.Hostname()
		id = fmt.Sprintf("%s-%d", host, os.Getpid())
	} else if len(id) > 12 {
		id = id[:12]
	}
	if role != "" {
		id += "-" + role
	}
	return id
}

// ClientOptionsFromURL creates ClientOptions from URL. The URL path is the
// topic prefix. Without a client-id query parameter, DefaultClientID(role)
// is used.
func ClientOptionsFromURL(serverURL, role string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	clientID := u.Query().Get("client-id")
	if clientID == "" {
		clientID = DefaultClientID(role)
	}
	opts.SetClientID(clientID)

	return opts, NormalizePrefix(u.Path), nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: NormalizePrefix(topicPrefix), Timeout: DefaultTimeout}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(q.onConnectionLost)
	q.Client = paho.NewClient(options)
	return q
}

// Dial creates a Queue from URL and connects it.
func Dial(brokerURL, role string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL, role)
	if err != nil {
		return nil, err
	}
	q := NewQueue(opts, topicPrefix)
	if err = q.wait(q.Client.Connect()); err != nil {
		return nil, fmt.Errorf("connect %s: %v", brokerURL, err)
	}
	return q, nil
}

func (q *Queue) wait(token paho.Token) error {
	timeout := q.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub implements PubSub.
func (q *Queue) Sub(topic string, handler Handler) (io.Closer, error) {
	sub := &Subscription{queue: q, topic: topic, handler: handler}
	q.subsLock.Lock()
	if q.subs == nil {
		q.subs = make(map[string][]*Subscription)
	}
	subs := q.subs[topic]
	q.subs[topic] = append(subs, sub)
	q.subsLock.Unlock()

	if len(subs) == 0 {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+topic)
		if err := q.wait(q.Client.Subscribe(q.TopicPrefix+topic, 0, q.dispatch)); err != nil {
			sub.Close()
			return nil, err
		}
	}
	return sub, nil
}

// Pub implements PubSub.
func (q *Queue) Pub(topic string, payload []byte) error {
	glog.V(2).Infof("PUB %q %d bytes", q.TopicPrefix+topic, len(payload))
	return q.wait(q.Client.Publish(q.TopicPrefix+topic, 0, false, payload))
}

func (q *Queue) onConnect(paho.Client) {
	glog.Info("mqtt connected")
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for topic := range q.subs {
		filters[q.TopicPrefix+topic] = 0
	}
	q.subsLock.RUnlock()
	if len(filters) > 0 {
		glog.V(2).Infof("resubscribe %d topics", len(filters))
		q.Client.SubscribeMultiple(filters, q.dispatch)
	}
}

func (q *Queue) onConnectionLost(c paho.Client, err error) {
	glog.Warningf("mqtt connection lost: %v", err)
}

func (q *Queue) dispatch(c paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if len(topic) < len(q.TopicPrefix) || topic[:len(q.TopicPrefix)] != q.TopicPrefix {
		return
	}
	glog.V(2).Infof("RCV %q", topic)
	q.deliver(topic[len(q.TopicPrefix):], msg.Payload())
}

func (q *Queue) deliver(topic string, payload []byte) {
	var handlers []Handler
	q.subsLock.RLock()
	for pattern, subs := range q.subs {
		if pattern == topic || (IsWildcard(pattern) && MatchTopic(topic, pattern)) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	q.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close unsubscribes the handler. The topic is unsubscribed from the
// broker with the last handler.
func (s *Subscription) Close() error {
	q := s.queue
	q.subsLock.Lock()
	subs := q.subs[s.topic]
	for i, sub := range subs {
		if sub == s {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	unsub := len(subs) == 0
	if unsub {
		delete(q.subs, s.topic)
	} else {
		q.subs[s.topic] = subs
	}
	q.subsLock.Unlock()
	if unsub && q.Client != nil && q.Client.IsConnected() {
		glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.topic)
		return q.wait(q.Client.Unsubscribe(q.TopicPrefix + s.topic))
	}
	return nil
}
