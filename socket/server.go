package socket

import (
	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"

	"beyondrounds_server/models"
)

// Hub wraps the socket.io server and pushes notifications to connected
// users. Each user joins a private room named after their id.
type Hub struct {
	Server *socketio.Server
	Log    *zap.Logger
}

// NewHub initializes the socket.io server and its event handlers.
func NewHub(log *zap.Logger) *Hub {
	server := socketio.NewServer(nil)
	hub := &Hub{Server: server, Log: log}

	server.OnConnect("/", func(c socketio.Conn) error {
		log.Debug("socket connected", zap.String("socketId", c.ID()))
		return nil
	})

	server.OnEvent("/", "join", func(c socketio.Conn, data map[string]string) {
		userID := data["userId"]
		if userID == "" {
			log.Warn("join without userId", zap.String("socketId", c.ID()))
			return
		}
		c.Join(userRoom(userID))
		log.Debug("socket joined", zap.String("socketId", c.ID()), zap.String("userId", userID))
	})

	server.OnEvent("/", "joinGroup", func(c socketio.Conn, data map[string]string) {
		groupID := data["groupId"]
		if groupID == "" {
			return
		}
		c.Join(groupRoom(groupID))
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Debug("socket disconnected", zap.String("socketId", c.ID()), zap.String("reason", reason))
	})

	server.OnError("/", func(c socketio.Conn, err error) {
		log.Warn("socket error", zap.Error(err))
	})

	return hub
}

// Push delivers a notification to the user's room. No-op when the user has
// no open connection.
func (h *Hub) Push(userID string, notification models.Notification) {
	h.Server.BroadcastToRoom("/", userRoom(userID), "notification", notification)
}

// BroadcastGroupMessage fans a chat message out to a group's room.
func (h *Hub) BroadcastGroupMessage(groupID string, message models.GroupMessage) {
	h.Server.BroadcastToRoom("/", groupRoom(groupID), "newMessage", message)
}

func userRoom(userID string) string   { return "user:" + userID }
func groupRoom(groupID string) string { return "group:" + groupID }
