package websocket

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type socketClient struct {
	id     uuid.UUID
	socket *websocket.Conn
}

func (client *socketClient) SendMessage(message *SocketMessage) error {
	return client.socket.WriteJSON(message)
}

// Drain reads and discards inbound frames until the connection errors,
// which is how a client disconnect is detected. The activity stream is
// one-way; clients have nothing to say to the server.
func (client *socketClient) Drain() error {
	for {
		if _, _, err := client.socket.ReadMessage(); err != nil {
			return err
		}
	}
}

func (client *socketClient) Close() {
	client.socket.Close()
}
