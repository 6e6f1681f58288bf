// Package protocol hand-writes wire-compatible protobuf codecs for the
// handful of coordinator-proxy message shapes this gateway speaks,
// without depending on a protoc-generated package: each message type
// marshals and unmarshals its own fields directly against
// google.golang.org/protobuf/encoding/protowire primitives.
package protocol

// Message is the minimal contract a coordinator-proxy payload must
// satisfy: encode itself to protobuf wire bytes, and decode itself from
// them. This stands in for proto.Message where no generated type exists.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}
