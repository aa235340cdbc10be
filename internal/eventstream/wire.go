package eventstream

import "encoding/json"

// outbound request actions, matching the wire contract exactly.
const (
	actionAuth       = "auth"
	actionRegister   = "register"
	actionDeregister = "deregister"
	actionPing       = "ping"
)

// inbound message actions.
const (
	actionAuthenticated = "authenticated"
	actionRegistered    = "registered"
	actionDeregistered  = "deregistered"
	actionEvent         = "event"
)

// authRequest authenticates the socket using the same bearer token the
// Remote Client uses.
type authRequest struct {
	Action        string `json:"action"`
	Authorization string `json:"authorization"`
}

// registerRequest asks the server to start forwarding events for a subject.
type registerRequest struct {
	Action    string `json:"action"`
	RequestId string `json:"requestId"`
	MountId   string `json:"mountId"`
	Path      string `json:"path"`
}

// deregisterRequest asks the server to stop forwarding events for a
// previously registered listener.
type deregisterRequest struct {
	Action     string `json:"action"`
	ListenerId string `json:"listenerId"`
}

// pingRequest is sent on a fixed interval while authenticated; no reply is
// required by the protocol.
type pingRequest struct {
	Action string `json:"action"`
}

// inboundMessage is the single envelope every inbound frame decodes into;
// each action reads only the fields it carries.
// Unknown actions are tolerated and dropped — the protocol may grow new
// message kinds the client does not yet understand.
type inboundMessage struct {
	Action     string          `json:"action"`
	RequestId  string          `json:"requestId,omitempty"`
	ListenerId string          `json:"listenerId,omitempty"`
	MountId    string          `json:"mountId,omitempty"`
	Path       string          `json:"path,omitempty"`
	Event      json.RawMessage `json:"event,omitempty"`
}

func encodeAuth(authorization string) ([]byte, error) {
	return json.Marshal(authRequest{Action: actionAuth, Authorization: authorization})
}

func encodeRegister(requestId, mountId, path string) ([]byte, error) {
	return json.Marshal(registerRequest{Action: actionRegister, RequestId: requestId, MountId: mountId, Path: path})
}

func encodeDeregister(listenerId string) ([]byte, error) {
	return json.Marshal(deregisterRequest{Action: actionDeregister, ListenerId: listenerId})
}

func encodePing() ([]byte, error) {
	return json.Marshal(pingRequest{Action: actionPing})
}

func decodeInbound(raw []byte) (inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return inboundMessage{}, err
	}
	return msg, nil
}
