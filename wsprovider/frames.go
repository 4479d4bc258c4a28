// Package wsprovider speaks the provider contract over a websocket, so a node
// running outside the process can serve as an RGB WebLN provider.
//
// Every frame is a JSON object. Requests carry an id, a method and optional
// params. Responses echo the id with either a result or an error. Events are
// pushed unsolicited, carry no id, and name the event instead:
//
//	-> {"id":1,"method":"getInfo"}
//	<- {"id":1,"result":{...}}
//	<- {"id":2,"error":{"code":"InsufficientAssets","message":"..."}}
//	<- {"event":"transferUpdate","payload":{...}}
//
// Responses are matched to requests by id only, never by order.
package wsprovider

import (
	"encoding/json"

	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

const (
	// MaxMessageSize is the largest frame either side will read.
	MaxMessageSize = 4 * 1024 * 1024

	// codeInternal is reported for failures that didn't come with a
	// provider error code.
	codeInternal = "InternalError"
)

// requestFrame is sent by the client.
type requestFrame struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// serverFrame is either a response or an event, sent by the server.
type serverFrame struct {
	ID      uint64                `json:"id,omitempty"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *rgbrpc.ProviderError `json:"error,omitempty"`
	Event   string                `json:"event,omitempty"`
	Payload json.RawMessage       `json:"payload,omitempty"`
}

// isEvent returns true if the frame is an unsolicited event.
func (f *serverFrame) isEvent() bool {
	return f.Event != ""
}
