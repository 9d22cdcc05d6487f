package core

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// MessageType is the gateway frame discriminator carried in the "m" field.
type MessageType int

const (
	// MessageRequest is a client-initiated call expecting one reply.
	MessageRequest MessageType = iota
	// MessageReply answers a request, carrying the same sequence number.
	MessageReply
	// MessageSubscribe opens a push feed.
	MessageSubscribe
	// MessageEvent is an unsolicited push on a subscribed feed.
	MessageEvent
	// MessageUnsubscribe closes a push feed.
	MessageUnsubscribe
	// MessageError answers a request the gateway rejected.
	MessageError
)

// String returns the string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageRequest:
		return "REQUEST"
	case MessageReply:
		return "REPLY"
	case MessageSubscribe:
		return "SUBSCRIBE"
	case MessageEvent:
		return "EVENT"
	case MessageUnsubscribe:
		return "UNSUBSCRIBE"
	case MessageError:
		return "ERROR"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// Frame is one decoded gateway message. Payload holds the inner JSON
// document after the envelope's string layer is removed.
type Frame struct {
	Type     MessageType
	Sequence int64
	Endpoint string
	Payload  []byte
}

// wireFrame is the gateway envelope. The payload travels double-encoded:
// "o" is a JSON string whose contents are themselves a JSON document.
type wireFrame struct {
	M int    `json:"m"`
	I int64  `json:"i"`
	N string `json:"n"`
	O string `json:"o"`
}

// EncodeFrame builds the wire bytes for one outbound frame. The payload is
// marshalled and then embedded as a string, matching the gateway's
// double-encoded envelope.
func EncodeFrame(mtype MessageType, sequence int64, endpoint string, payload any) ([]byte, error) {
	inner, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", endpoint, err)
	}

	data, err := sonic.Marshal(wireFrame{
		M: int(mtype),
		I: sequence,
		N: endpoint,
		O: string(inner),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", endpoint, err)
	}
	return data, nil
}

// DecodeFrame parses one inbound envelope. Invalid JSON, an out-of-range
// message type, and a missing endpoint name all yield a decode error; the
// caller drops the frame and keeps the connection.
func DecodeFrame(data []byte) (*Frame, error) {
	var wire wireFrame
	if err := sonic.Unmarshal(data, &wire); err != nil {
		return nil, NewClientError(ErrorTypeDecode, ErrCodeDecode, fmt.Sprintf("invalid envelope: %v", err))
	}

	if wire.M < int(MessageRequest) || wire.M > int(MessageError) {
		return nil, NewClientError(ErrorTypeDecode, ErrCodeDecode, fmt.Sprintf("unknown message type %d", wire.M))
	}
	if wire.N == "" {
		return nil, NewClientError(ErrorTypeDecode, ErrCodeDecode, "missing endpoint name")
	}

	return &Frame{
		Type:     MessageType(wire.M),
		Sequence: wire.I,
		Endpoint: wire.N,
		Payload:  []byte(wire.O),
	}, nil
}

// DecodePayload unmarshals the inner payload document into v.
func (f *Frame) DecodePayload(v any) error {
	if err := sonic.Unmarshal(f.Payload, v); err != nil {
		return NewClientErrorWithEndpoint(ErrorTypeDecode, ErrCodeDecode, f.Endpoint, fmt.Sprintf("invalid payload: %v", err))
	}
	return nil
}
