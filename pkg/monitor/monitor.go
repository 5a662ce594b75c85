// Package monitor publishes copies of the frames crossing the link to MQTT,
// one topic per core and direction: <core>/tx and <core>/rx. Payloads are
// protobuf BytesValue messages.
package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/dualcore/pkg/hsem"
	"github.com/robotalks/dualcore/pkg/mqtt"
	"github.com/robotalks/dualcore/pkg/node"
)

// DefaultQueueSize is the number of frames buffered for publishing.
const DefaultQueueSize = 64

// Topic returns the topic of frames seen by core in direction dir.
func Topic(core hsem.CoreID, dir node.Direction) string {
	return core.String() + "/" + dir.String()
}

// ParseTopic reverses Topic.
func ParseTopic(topic string) (hsem.CoreID, node.Direction, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid frame topic %q", topic)
	}
	core, err := hsem.ParseCoreID(parts[len(parts)-2])
	if err != nil {
		return 0, 0, err
	}
	switch parts[len(parts)-1] {
	case node.Sent.String():
		return core, node.Sent, nil
	case node.Received.String():
		return core, node.Received, nil
	}
	return 0, 0, fmt.Errorf("invalid frame direction in %q", topic)
}

// Encode wraps a frame.
func Encode(frame []byte) ([]byte, error) {
	return proto.Marshal(&wrappers.BytesValue{Value: frame})
}

// Decode unwraps a frame.
func Decode(payload []byte) ([]byte, error) {
	var msg wrappers.BytesValue
	if err := proto.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	return msg.Value, nil
}

type frameMsg struct {
	topic   string
	payload []byte
}

// Publisher implements node.FrameTap. Frames are queued by TapFrame and
// published by Run, so a slow broker never stalls the polling loop;
// frames are dropped when the queue is full.
type Publisher struct {
	PubSub mqtt.PubSub

	queue chan frameMsg
}

// NewPublisher creates a Publisher.
func NewPublisher(ps mqtt.PubSub) *Publisher {
	return &Publisher{PubSub: ps, queue: make(chan frameMsg, DefaultQueueSize)}
}

// TapFrame implements node.FrameTap.
func (p *Publisher) TapFrame(core hsem.CoreID, dir node.Direction, frame []byte) {
	payload, err := Encode(frame)
	if err != nil {
		glog.Errorf("encode frame: %v", err)
		return
	}
	select {
	case p.queue <- frameMsg{topic: Topic(core, dir), payload: payload}:
	default:
		glog.Warningf("monitor queue full, drop %s frame", Topic(core, dir))
	}
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-p.queue:
			if err := p.PubSub.Pub(msg.topic, msg.payload); err != nil {
				glog.Warningf("publish %s: %v", msg.topic, err)
			}
		}
	}
}
