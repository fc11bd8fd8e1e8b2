// Package transport performs single requests against the simulation service
// and classifies their failures.
//
// # Why Transport Exists
//
// Every higher layer of the SDK (job client, poller, CLI) needs the same three
// things from the network: a way to send one request, a decoded response, and
// a failure that can be reasoned about without looking at raw HTTP. Keeping
// those concerns here lets the rest of the code treat the service as a
// black-box `Do(ctx, Request) -> Response | *Error`.
//
// # Error Classification
//
// Non-2xx responses and connection failures are returned as *Error with one
// of the following kinds:
//
//	KindUnauthorized  401 / 403
//	KindNotFound      404
//	KindRateLimited   429
//	KindServerError   5xx
//	KindOther         anything else, including connection failures
//
// The transport never retries. Retry policy belongs to the poller, which
// treats KindRateLimited as invisible backpressure.
//
// # Encodings
//
// Request payloads are JSON by default. EncodingMsgpack switches the payload
// and the Accept header to MessagePack. Independently, Config.Gzip compresses
// request bodies and sets Content-Encoding.
//
// # Authentication
//
// The API token is configured once on the Client and is never mutated by the
// SDK. It is shared read-only context across all requests.
package transport
