// Package routing derives the names a payload travels under.
//
// A payload type resolves to a lowercase message type (TypeResolver). The
// message type, the owning service and an action determine the queue, the
// exchange and the routing key (NameBuilder). Outbound instances are stamped
// with a request identifier before they leave the process (RequestIDInjector).
//
// Nothing in this package talks to a broker. Queue and exchange formats are
// owned by a Namer, normally the broker's queue manager.
package routing
