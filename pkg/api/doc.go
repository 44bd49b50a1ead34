// Package api defines the error taxonomy shared by every layer of bote.
//
// Two families of errors exist:
//
//   - Fatal construction errors: [UnsupportedTypeError],
//     [InvalidStatusCodeError] and [SchemaMismatchError]. They signal a
//     developer error in the endpoint and are surfaced as server failures.
//     None of them is ever raised after the first byte of a response has
//     been written, except for producers that fail mid-stream.
//   - Recoverable rejections: [APIError]. Application code returns one to
//     refuse a request; it carries the HTTP status code the client sees.
//
// The package has no dependencies outside the Go standard library and
// performs no I/O.
package api
