package socket

import (
	"fmt"
	"net/http"
	"strconv"

	"bindiff/core"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventWatch         = "watch-record"
	EventUnwatch       = "unwatch-record"
	EventRecordUpdated = "record-updated"
)

// Hub pushes record-updated events to the sockets watching a record.
type Hub struct {
	io *socketio.Server
}

// NewHub creates a socket.io server mounted at /socket.io. An empty origin list
// or one containing "*" allows every origin.
func NewHub(allowedOrigins []string) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(1 << 20)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      corsOrigin(allowedOrigins),
		Credentials: true,
	})

	h := &Hub{io: socketio.NewServer(nil, opts)}
	h.io.On("connection", func(clients ...any) {
		socket := clients[0].(*socketio.Socket)
		log := logrus.WithField("socket_id", socket.Id())
		log.Debug("Socket connected")

		socket.On(EventWatch, func(datas ...any) {
			id, ok := parseRecordID(datas)
			if !ok {
				log.WithField("payload", datas).Debug("Ignoring watch with invalid record id")
				return
			}
			socket.Join(Room(id))
			log.WithField("record_id", id).Debug("Socket watches record")
		})
		socket.On(EventUnwatch, func(datas ...any) {
			if id, ok := parseRecordID(datas); ok {
				socket.Leave(Room(id))
			}
		})
		socket.On("disconnect", func(...any) {
			socket.RemoveAllListeners("")
			log.Debug("Socket disconnected")
		})
	})
	return h
}

// Handler serves the socket.io transport.
func (h *Hub) Handler() http.Handler {
	return h.io.ServeHandler(nil)
}

// RecordUpdated emits record-updated to the room of record id. Failures are
// logged and otherwise ignored.
func (h *Hub) RecordUpdated(id int64, side core.Side) {
	payload := map[string]any{
		"id":   id,
		"side": side.String(),
	}
	if err := h.io.To(Room(id)).Emit(EventRecordUpdated, payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"record_id": id,
			"side":      side,
			"error":     err,
		}).Warn("Failed to notify watchers")
	}
}

func (h *Hub) Close() {
	h.io.Close(nil)
}

// Room is the room joined by sockets watching record id.
func Room(id int64) socketio.Room {
	return socketio.Room(fmt.Sprintf("record:%d", id))
}

// parseRecordID accepts the id as a JSON number or a decimal string.
func parseRecordID(datas []any) (int64, bool) {
	if len(datas) == 0 {
		return 0, false
	}
	var id int64
	switch v := datas[0].(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	if id <= 0 {
		return 0, false
	}
	return id, true
}

func corsOrigin(allowed []string) any {
	if len(allowed) == 0 {
		return "*"
	}
	origins := make([]any, 0, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		origins = append(origins, o)
	}
	return origins
}
