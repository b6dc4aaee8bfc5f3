package websocket

type socketMessageType int

const (
	Update socketMessageType = iota
	Welcome
)

// SocketMessage is the envelope pushed to connected activity clients.
// Title names the event (e.g. LIBRARY_UPDATE) and Body carries the
// accompanying state payload.
type SocketMessage struct {
	Title string                 `json:"title"`
	Body  map[string]interface{} `json:"arguments"`
	Type  socketMessageType      `json:"type"`
}
