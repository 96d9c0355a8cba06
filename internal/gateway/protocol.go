package gateway

import "encoding/json"

// envelope is the wire-level client→server and server→client message shape
// (spec §6.1): `{ seq, type, payload }`; server→client omits seq.
type envelope struct {
	Seq     int64           `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// maxPayloadBytes bounds one inbound frame; anything larger is a framing
// error and the connection is closed (spec §4.8 "Payload size exceeds a
// fixed limit → close with framing error").
const maxPayloadBytes = 16 * 1024
