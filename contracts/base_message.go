package contracts

// BaseMessage provides the request identifier field shared by most payloads.
// Embed it by value in a struct and publish a pointer to that struct.
type BaseMessage struct {
	RequestID string `json:"requestId,omitempty"`
}

// GetRequestID returns the request ID
func (m BaseMessage) GetRequestID() string {
	return m.RequestID
}

// SetRequestID sets the request ID
func (m *BaseMessage) SetRequestID(requestID string) {
	m.RequestID = requestID
}
