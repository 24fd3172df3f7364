package socket

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bindiff/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	client "github.com/zishang520/socket.io-client-go/socket"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func TestRoom(t *testing.T) {
	assert.Equal(t, socketio.Room("record:9999"), Room(9999))
}

func TestParseRecordID(t *testing.T) {
	cases := []struct {
		name  string
		datas []any
		want  int64
		ok    bool
	}{
		{"json number", []any{float64(42)}, 42, true},
		{"string", []any{"17"}, 17, true},
		{"int", []any{7}, 7, true},
		{"fraction", []any{1.5}, 0, false},
		{"zero", []any{float64(0)}, 0, false},
		{"negative string", []any{"-3"}, 0, false},
		{"garbage", []any{"abc"}, 0, false},
		{"object", []any{map[string]any{"id": 1}}, 0, false},
		{"empty", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := parseRecordID(tc.datas)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestCorsOrigin(t *testing.T) {
	assert.Equal(t, "*", corsOrigin(nil))
	assert.Equal(t, "*", corsOrigin([]string{"http://a", "*"}))
	assert.Equal(t, []any{"http://a", "https://b"}, corsOrigin([]string{"http://a", "https://b"}))
}

func TestRecordUpdatedWithoutWatchers(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	assert.NotNil(t, hub.Handler())
	assert.NotPanics(t, func() {
		hub.RecordUpdated(1, core.SideLeft)
	})
}

type update struct {
	id   int64
	side string
}

func connect(t *testing.T, url string) (*client.Socket, <-chan update) {
	t.Helper()
	opts := client.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.Polling))
	opts.SetForceNew(true)
	opts.SetReconnection(false)
	opts.SetTimeout(5 * time.Second)
	opts.SetAutoConnect(false)

	conn, err := client.Connect(url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Disconnect() })

	var once sync.Once
	connected := make(chan struct{})
	updates := make(chan update, 64)
	conn.On("connect", func(...any) {
		once.Do(func() { close(connected) })
	})
	conn.On(EventRecordUpdated, func(args ...any) {
		if len(args) == 0 {
			return
		}
		payload, ok := args[0].(map[string]any)
		if !ok {
			return
		}
		id, _ := payload["id"].(float64)
		side, _ := payload["side"].(string)
		updates <- update{id: int64(id), side: side}
	})
	conn.Connect()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("socket did not connect")
	}
	return conn, updates
}

// awaitUpdate keeps notifying record id until the client receives it, since
// joining a room happens asynchronously on the server.
func awaitUpdate(t *testing.T, hub *Hub, updates <-chan update, id int64) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		hub.RecordUpdated(id, core.SideLeft)
		select {
		case u := <-updates:
			if u.id == id {
				assert.Equal(t, "left", u.side)
				return
			}
		case <-tick.C:
		case <-deadline:
			t.Fatalf("no record-updated event for record %d", id)
		}
	}
}

func TestWatchRecordReceivesUpdates(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn, updates := connect(t, srv.URL)

	require.NoError(t, conn.Emit(EventWatch, 7))
	awaitUpdate(t, hub, updates, 7)

	require.NoError(t, conn.Emit(EventUnwatch, 7))
	require.NoError(t, conn.Emit(EventWatch, "8"))
	// Events are handled in order, so once record 8 is delivered the socket
	// has already left the room of record 7.
	awaitUpdate(t, hub, updates, 8)

	hub.RecordUpdated(7, core.SideRight)
	hub.RecordUpdated(8, core.SideRight)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.id == 8 && u.side == "right" {
				return
			}
			if u.id == 7 {
				t.Fatalf("received %+v after unwatch-record", u)
			}
		case <-timeout:
			t.Fatal("no record-updated event for record 8")
		}
	}
}
