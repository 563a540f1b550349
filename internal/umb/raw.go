package umb

// RawMessage is a decoded bus message as delivered by the broker. The
// engine only reads it; ownership stays with the transport.
//
// The producer payload lives under Body["msg"].
type RawMessage struct {
	Topic   string                 `json:"topic"`
	Headers map[string]string      `json:"headers"`
	Body    map[string]interface{} `json:"body"`
}

// Msg returns the schema-specific payload, or nil when the body does not
// carry one.
func (m RawMessage) Msg() map[string]interface{} {
	if m.Body == nil {
		return nil
	}
	payload, ok := m.Body["msg"].(map[string]interface{})
	if !ok {
		return nil
	}
	return payload
}

// Header returns the named bus header, or "" when absent.
func (m RawMessage) Header(name string) string {
	return m.Headers[name]
}

// ID returns the bus message ID used as the logging correlation key.
func (m RawMessage) ID() string {
	if id := m.Header("message-id"); id != "" {
		return id
	}
	return "ID:UNKNOWN"
}
