// Package hub fans websocket messages out to every connected client. Each
// client has its own bounded queue; a client that falls behind is dropped
// rather than slowing the broadcaster.
package hub

import "github.com/gofiber/websocket/v2"

// MessageType is the websocket frame kind a message is written as.
type MessageType int

const (
	// JSONMessage is written as a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is written as a binary frame (rendered PNG views).
	BinaryMessage
)

// Message is one queued frame.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps an encoded image.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

func (m Message) frameType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
