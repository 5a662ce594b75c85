// Package mqtt carries console bytes and frame copies over an MQTT broker.
package mqtt

import (
	"io"
	"strings"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// PubSub publishes and subscribes topics relative to a prefix.
type PubSub interface {
	Pub(topic string, payload []byte) error
	Sub(topic string, handler Handler) (io.Closer, error)
}

// MatchTopic matches topic with pattern, which may contain '+' and a
// trailing '#'.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// IsWildcard tells if the topic is a pattern.
func IsWildcard(topic string) bool {
	return strings.Contains(topic, "+") || strings.HasSuffix(topic, "#")
}

// NormalizePrefix strips the leading slash and ensures a non-empty prefix
// ends with one.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
