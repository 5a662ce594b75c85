package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"

	mq "github.com/robotalks/dualcore/pkg/mqtt"
	"github.com/robotalks/dualcore/pkg/transport"
)

func TestConn(t *testing.T) {
	lb := mq.NewLoopback()
	c, err := New(lb, "cm7/console/")
	require.NoError(t, err)

	var out []string
	_, err = lb.Sub("cm7/console/out", func(topic string, payload []byte) {
		out = append(out, string(payload))
	})
	require.NoError(t, err)

	require.NoError(t, lb.Pub("cm7/console/in", []byte("ls\r")))
	require.NoError(t, lb.Pub("cm4/console/in", []byte("x")))
	var in []byte
	for {
		b, ok := c.TryReadByte()
		if !ok {
			break
		}
		in = append(in, b)
	}
	require.Equal(t, "ls\r", string(in))

	require.NoError(t, c.WriteByte('o'))
	require.NoError(t, c.WriteByte('k'))
	require.Empty(t, out)
	require.NoError(t, transport.FlushIfNeeded(c))
	require.Equal(t, []string{"ok"}, out)
	require.NoError(t, c.Flush())
	require.Len(t, out, 1)

	require.NoError(t, c.WriteByte('!'))
	require.NoError(t, c.Close())
	require.Equal(t, []string{"ok", "!"}, out)
	require.Equal(t, 1, lb.Subscribers())
	require.Equal(t, transport.ErrClosed, c.WriteByte('x'))
}

func TestRegistered(t *testing.T) {
	require.Contains(t, transport.Schemes(), "mqtt")
}
