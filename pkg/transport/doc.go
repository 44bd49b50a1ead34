// Package transport turns response envelopes into an ordered sequence of
// protocol messages and defines the handler contract of the bote server.
//
// # Messages
//
// A response cycle is a start message followed by one or more body
// messages, each handed to a [Transport] in order:
//
//	{type: http.response.start, status: 200, headers: [[name, value], ...]}
//	{type: http.response.body, body: ..., more_body: false}
//
// A buffered envelope is sent as one body message. A stream sends one body
// message per chunk with more_body set, then an empty terminal body message.
// The [Sender] drives the cycle; the transport/http package binds the
// messages to a net/http ResponseWriter.
//
// # Handlers and middleware
//
// A [Handler] returns either an envelope, a stream or plain data, which is
// wrapped in a JSON envelope. The middleware chain wraps handlers with
// cross-cutting concerns: panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog.
package transport
