package websocket

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shunxiangg/YTvid-storage/pkg/logger"
)

var socketLogger = logger.Get("WebSocket")

// SocketHub manages the websocket upgrading, connecting and pushing of
// library activity messages. The stream is broadcast-only: every
// connected client receives every update, plus a welcome snapshot of
// the server's current state when it first connects.
type SocketHub struct {
	upgrader           *websocket.Upgrader
	clients            []*socketClient
	registerCh         chan *socketClient
	deregisterCh       chan *socketClient
	sendCh             chan *SocketMessage
	connectionCallback func() map[string]interface{}
	running            bool
}

func New() *SocketHub {
	return &SocketHub{
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		running: false,
	}
}

// WithConnectionCallback sets a callback executed each time a new
// client connects, furnishing it with a payload of the server's current
// state without waiting for an UPDATE that may never come.
func (hub *SocketHub) WithConnectionCallback(callback func() map[string]interface{}) {
	hub.connectionCallback = callback
}

// Start runs the socket hub by listening on all related channels for
// incoming clients and messages. Blocks until the context is cancelled.
func (hub *SocketHub) Start(ctx context.Context) {
	if hub.running {
		socketLogger.Warnf("Attempting to start socketHub when already running! Ignoring request.\n")
		return
	} else if ctx.Err() != nil {
		socketLogger.Emit(logger.STOP, "Refusing to start socket hub as provided context is already cancelled\n")
		return
	}
	socketLogger.Infof("Opening SocketHub!\n")

	hub.sendCh = make(chan *SocketMessage)
	hub.registerCh = make(chan *socketClient)
	hub.deregisterCh = make(chan *socketClient)
	hub.clients = make([]*socketClient, 0)
	hub.running = true

	defer hub.close()
loop:
	for {
		select {
		case message := <-hub.sendCh:
			for _, client := range hub.clients {
				if err := client.SendMessage(message); err != nil {
					socketLogger.Errorf("Failed to send message to client {%v}: %v\n", client.id, err)
				}
			}
		case client := <-hub.registerCh:
			hub.clients = append(hub.clients, client)
			socketLogger.Emit(logger.NEW, "Registered new client {%v}\n", client.id)

			var body map[string]interface{}
			if hub.connectionCallback != nil {
				body = hub.connectionCallback()
			} else {
				body = make(map[string]interface{})
			}
			body["client"] = client.id

			if err := client.SendMessage(&SocketMessage{Title: "CONNECTION_ESTABLISHED", Body: body, Type: Welcome}); err != nil {
				socketLogger.Errorf("Failed to send welcome message to client {%v}: %v\n", client.id, err)
			}
		case client := <-hub.deregisterCh:
			for idx, candidate := range hub.clients {
				if candidate.id == client.id {
					hub.clients = append(hub.clients[:idx], hub.clients[idx+1:]...)
					socketLogger.Emit(logger.REMOVE, "Deregistered client {%v}\n", client.id)
					break
				}
			}
		case <-ctx.Done():
			socketLogger.Emit(logger.REMOVE, "Shutting down socket hub! Closing all clients.\n")
			break loop
		}
	}
}

// Send broadcasts a socket message to all connected clients. The
// message is ignored if the hub is not running (see Start).
func (hub *SocketHub) Send(message *SocketMessage) {
	if !hub.running {
		socketLogger.Warnf("Attempted to send message via socket hub, however the hub is offline. Ignoring message.\n")
		return
	}

	hub.sendCh <- message
}

// UpgradeToSocket upgrades the given HTTP request to a websocket and
// adds the new client to the hub, blocking until the client closes its
// connection.
func (hub *SocketHub) UpgradeToSocket(w http.ResponseWriter, r *http.Request) {
	if !hub.running {
		socketLogger.Errorf("Failed to upgrade incoming HTTP request to a websocket: SocketHub has not been started!\n")
		return
	}

	id, err := uuid.NewRandom()
	if err != nil {
		socketLogger.Errorf("Failed to generate UUID for new connection - aborting!\n")
		return
	}

	sock, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		socketLogger.Errorf("Failed to upgrade incoming HTTP request to a websocket: %v\n", err)
		return
	}

	client := &socketClient{id: id, socket: sock}
	hub.registerCh <- client

	defer func() {
		hub.deregisterCh <- client
		client.Close()
	}()

	if err := client.Drain(); err != nil {
		socketLogger.Verbosef("Client {%v} closed: %v\n", client.id, err)
	}
}

func (hub *SocketHub) close() {
	if !hub.running {
		return
	}

	for _, client := range hub.clients {
		client.Close()
	}

	hub.clients = nil
	hub.running = false
	socketLogger.Emit(logger.STOP, "Socket hub is now closed!\n")
}
