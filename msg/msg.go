// Package msg contains the publisher side contract: topics, messages and
// (async) publishers.
package msg

// Message is one message to be published. The publisher owns Data and
// Attributes once it is passed to Publish/PublishAsync.
type Message struct {
	// Data is the payload.
	Data []byte

	// Attributes are optional key/value metadata. Sinks without header support
	// drop them.
	Attributes map[string]string
}

// SetAttribute sets an attribute, the map is created if nil.
func (m *Message) SetAttribute(key, val string) {
	if m.Attributes == nil {
		m.Attributes = make(map[string]string)
	}
	m.Attributes[key] = val
}

// Attribute returns an attribute or "" if not exists.
func (m *Message) Attribute(key string) string {
	return m.Attributes[key]
}
