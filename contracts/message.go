package contracts

// CommandTyped overrides the message type of a command payload.
// It takes precedence over MessageTyped.
type CommandTyped interface {
	CommandType() string
}

// MessageTyped overrides the message type derived from the type name
type MessageTyped interface {
	MessageType() string
}

// RequestIDGetter exposes the request identifier carried by a payload
type RequestIDGetter interface {
	GetRequestID() string
}

// RequestIDSetter lets the publisher stamp a request identifier
type RequestIDSetter interface {
	SetRequestID(requestID string)
}

// Destined declares the service a payload is published to when no
// destination is given explicitly
type Destined interface {
	PublishService() string
}

// Actioned declares the action used alongside Destined.
// Payloads without it are published with the default action.
type Actioned interface {
	PublishAction() string
}
