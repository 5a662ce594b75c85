// Package mqtt provides a console transport over MQTT. Input arrives on
// <prefix>in and output is published to <prefix>out, one message per
// flush.
package mqtt

import (
	"io"
	"net/url"

	"github.com/golang/glog"

	mq "github.com/robotalks/dualcore/pkg/mqtt"
	"github.com/robotalks/dualcore/pkg/transport"
)

// Topics relative to the console prefix.
const (
	TopicIn  = "in"
	TopicOut = "out"
)

// Conn is a console transport over a PubSub.
type Conn struct {
	*transport.Memory

	ps     mq.PubSub
	prefix string
	sub    io.Closer
	closer io.Closer
}

// New subscribes prefix+TopicIn on ps.
func New(ps mq.PubSub, prefix string) (*Conn, error) {
	c := &Conn{Memory: transport.NewMemory(), ps: ps, prefix: prefix}
	c.Memory.Sink = c.publish
	sub, err := ps.Sub(prefix+TopicIn, c.receive)
	if err != nil {
		return nil, err
	}
	c.sub = sub
	return c, nil
}

// Dial connects to the broker in u, the URL path being the console
// prefix, e.g. mqtt://localhost:1883/dualcore/cm7/console.
func Dial(u *url.URL) (transport.Conn, error) {
	q, err := mq.Dial(u.String(), "console")
	if err != nil {
		return nil, err
	}
	c, err := New(q, "")
	if err != nil {
		q.Close()
		return nil, err
	}
	c.closer = q
	return c, nil
}

func (c *Conn) receive(topic string, payload []byte) {
	glog.V(2).Infof("console input %d bytes", len(payload))
	c.Memory.Feed(payload)
}

func (c *Conn) publish(p []byte) error {
	return c.ps.Pub(c.prefix+TopicOut, p)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.Memory.Flush()
	err := c.sub.Close()
	c.Memory.Close()
	if c.closer != nil {
		c.closer.Close()
	}
	return err
}

func init() {
	transport.Register("mqtt", Dial)
}
