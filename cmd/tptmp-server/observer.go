package main

import (
	"log/slog"

	"github.com/hellomouse/tptmp-server/internal/room"
)

// lifecycleLogger renders room lifecycle events through the process
// logger using short event names (client_identified, room_create, ...).
// The standalone binary has no embedding host to forward these to, so
// logging is the default sink.
func lifecycleLogger(l *slog.Logger) room.Observer {
	return room.Observer{
		NewClient: func(c room.Member) {
			l.Debug("client_accepted")
		},
		Identified: func(c room.Member) {
			l.Info("client_identified", "id", c.ID(), "nick", c.Nick())
		},
		Join: func(c room.Member, r *room.Room) {
			l.Info("room_join", "id", c.ID(), "nick", c.Nick(), "room", r.Name())
		},
		Part: func(c room.Member, r *room.Room) {
			l.Info("room_part", "id", c.ID(), "nick", c.Nick(), "room", r.Name())
		},
		Disconnect: func(c room.Member, reason string) {
			l.Info("client_gone", "id", c.ID(), "nick", c.Nick(), "reason", reason)
		},
		Kicked: func(c, source room.Member, reason string) {
			l.Info("client_kicked", "id", c.ID(), "nick", c.Nick(), "by", source.Nick(), "reason", reason)
		},
		Chat: func(c room.Member, text string) {
			l.Debug("chat", "id", c.ID(), "nick", c.Nick(), "len", len(text))
		},
		RoomCreate: func(r *room.Room) {
			l.Info("room_create", "room", r.Name())
		},
		RoomDelete: func(r *room.Room) {
			l.Info("room_delete", "room", r.Name())
		},
	}
}
