/*
Package server implements msgpack IPC for parcel suggestions over stdin/stdout.

Clients write a stream of msgpack maps and read a stream of msgpack maps back.
Every message carries an "id" chosen by the client.

Query requests feed the suggestion controller, one per keystroke:

	{"id": "q_001", "q": "123 ma"}

Only the most recent query is answered. Its response arrives once the search
settles; superseded queries get no response:

	{"id": "q_001", "s": [{"p": "1234567890", "a": "123 Main St, Boston, MA 02108"}], "c": 1, "t": 312, "l": false}

"t" is the time from request to response in microseconds, "l" reports whether
pairing data was still loading, and "e" carries the load error text if any.

Actions manage the session and the data:

	{"id": "a_001", "action": "clear"}
	{"id": "a_002", "action": "status"}
	{"id": "a_003", "action": "refresh"}
*/
package server

// Request is any client message. Action is empty for queries.
type Request struct {
	ID     string `msgpack:"id"`
	Query  string `msgpack:"q,omitempty"`
	Action string `msgpack:"action,omitempty"` // "clear", "status", "refresh"
}

// Suggestion is one pairing in a response.
type Suggestion struct {
	ParcelID    string `msgpack:"p"`
	FullAddress string `msgpack:"a"`
}

// SuggestResponse answers the latest query, or a clear.
type SuggestResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
	Loading     bool         `msgpack:"l"`
	Error       string       `msgpack:"e,omitempty"`
}

// StatusResponse answers status and refresh actions.
type StatusResponse struct {
	ID       string `msgpack:"id"`
	Status   string `msgpack:"status"`
	Pairings int    `msgpack:"pairings"`
	Loading  bool   `msgpack:"l"`
	Error    string `msgpack:"e,omitempty"`
}

// ErrorResponse reports a request that could not be served.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
