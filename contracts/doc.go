// Package contracts defines the optional capabilities a payload type can
// implement to steer convention-based routing.
//
// None of the interfaces are required. A plain struct is routed by its type
// name alone; implementing a capability overrides one convention:
//   - CommandTyped / MessageTyped: replace the name-derived message type
//   - Destined / Actioned: declare where Publish(payload) sends the payload
//   - RequestIDGetter / RequestIDSetter: expose the request identifier that
//     publishing stamps onto every outbound instance
//
// Type-level capabilities (message type, destination) are evaluated on the
// zero value of the payload type, so their methods must return constants.
// BaseMessage can be embedded to get the request-id capability for free.
package contracts
