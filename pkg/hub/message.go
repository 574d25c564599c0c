// Package hub fans encoded protocol messages out to websocket clients
// using the channel-based broadcast pattern.
package hub

import "github.com/teslashibe/go-screengaze/pkg/protocol"

// Message is an encoded protocol envelope queued for broadcast. Topic is the
// envelope type; clients may subscribe to a subset of topics.
type Message struct {
	Topic protocol.MessageType
	Data  []byte
}

// Encode serializes a protocol message for broadcast.
func Encode(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: msg.Type, Data: data}, nil
}

// Topics is a client's subscription. A nil or empty set receives everything.
type Topics map[protocol.MessageType]bool

// NewTopics builds a subscription from message types.
func NewTopics(types ...protocol.MessageType) Topics {
	t := make(Topics, len(types))
	for _, typ := range types {
		t[typ] = true
	}
	return t
}

// Wants reports whether a message on topic should be delivered.
func (t Topics) Wants(topic protocol.MessageType) bool {
	return len(t) == 0 || t[topic]
}
