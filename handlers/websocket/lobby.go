// Package websocket pushes presence changes to connected board clients over socket.io.
//
// Clients emit "join-lobby" and from then on receive "presence-change" with the
// full entry list after every registry mutation. A snapshot is sent on join.
package websocket

import (
	"context"
	"gameboard-server/core"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventJoinLobby      = "join-lobby"
	EventLeaveLobby     = "leave-lobby"
	EventPresenceChange = "presence-change"

	lobbyRoom       = socketio.Room("lobby")
	snapshotTimeout = 5 * time.Second
)

// Lister reads the current registry contents.
type Lister interface {
	List(ctx context.Context) ([]core.PresenceEntry, error)
}

type Lobby struct {
	io     *socketio.Server
	lister Lister
}

// NewLobby builds the socket.io server. origins restricts cross-origin clients; empty allows any.
func NewLobby(lister Lister, origins []string) *Lobby {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      corsOrigin(origins),
		Credentials: true,
	})

	l := &Lobby{io: socketio.NewServer(nil, opts), lister: lister}
	l.io.On("connection", l.onConnection)
	return l
}

func corsOrigin(origins []string) any {
	if len(origins) == 0 {
		return "*"
	}
	allowed := make([]any, len(origins))
	for i, o := range origins {
		allowed[i] = o
	}
	return allowed
}

func (l *Lobby) onConnection(clients ...any) {
	socket := clients[0].(*socketio.Socket)
	me := socket.Id()
	log := logrus.WithField("socket_id", me)
	log.Debug("Socket connected")

	socket.On(EventJoinLobby, func(...any) {
		socket.Join(lobbyRoom)
		log.Info("Socket joined lobby")

		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		entries, err := l.lister.List(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to load presence snapshot")
			return
		}
		if err := socket.Emit(EventPresenceChange, entries); err != nil {
			log.WithError(err).Warn("Failed to send presence snapshot")
		}
	})
	socket.On(EventLeaveLobby, func(...any) {
		socket.Leave(lobbyRoom)
		log.Debug("Socket left lobby")
	})
	socket.On("disconnect", func(...any) {
		log.Debug("Socket disconnected")
		socket.RemoveAllListeners("")
	})
}

// PresenceChanged broadcasts entries to every socket in the lobby.
func (l *Lobby) PresenceChanged(entries []core.PresenceEntry) {
	if entries == nil {
		entries = []core.PresenceEntry{}
	}
	if err := l.io.To(lobbyRoom).Emit(EventPresenceChange, entries); err != nil {
		logrus.WithError(err).Warn("Failed to broadcast presence change")
	}
}

// Handler serves the socket.io transport.
func (l *Lobby) Handler() http.Handler {
	return l.io.ServeHandler(nil)
}

func (l *Lobby) Close() {
	l.io.Close(nil)
}
