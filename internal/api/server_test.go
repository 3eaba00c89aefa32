//go:build unix

package api

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

type rawResponse struct {
	Ok   bool            `json:"ok"`
	Err  string          `json:"err"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	t   *testing.T
	enc *json.Encoder
	dec *json.Decoder
}

func startServer(t *testing.T) (*client, *pty.Manager) {
	t.Helper()
	// Socket paths are length limited, so stay out of deep temp dirs.
	dir, err := os.MkdirTemp("", "wpe")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	manager := pty.NewManager()
	server := NewServer(filepath.Join(dir, "pty.sock"), manager)
	require.NoError(t, server.Listen())
	go server.Serve()
	t.Cleanup(func() {
		server.Stop()
		manager.CloseAll(true)
	})

	conn, err := net.Dial("unix", filepath.Join(dir, "pty.sock"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	return &client{t: t, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}, manager
}

func (c *client) call(action string, data interface{}) rawResponse {
	c.t.Helper()
	req := map[string]interface{}{"action": action}
	if data != nil {
		req["data"] = data
	}
	require.NoError(c.t, c.enc.Encode(req))
	var resp rawResponse
	require.NoError(c.t, c.dec.Decode(&resp))
	return resp
}

func (c *client) ok(action string, data interface{}, out interface{}) {
	c.t.Helper()
	resp := c.call(action, data)
	require.True(c.t, resp.Ok, "%s failed: %s", action, resp.Err)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(resp.Data, out))
	}
}

func TestServerSessionLifecycle(t *testing.T) {
	c, manager := startServer(t)

	var spawned SpawnResponse
	c.ok("spawn", map[string]interface{}{"path": "cat", "timeout_ms": 2000}, &spawned)
	require.NotEmpty(t, spawned.ID)
	assert.Greater(t, spawned.PID, 0)
	assert.Equal(t, 1, manager.Count())

	var sent SendResponse
	c.ok("sendline", SendRequest{ID: spawned.ID, Data: "hello"}, &sent)
	assert.Equal(t, len("hello\n"), sent.Written)

	// The terminal echoes the input, then cat writes it back.
	for i := 0; i < 2; i++ {
		var line ReadResponse
		c.ok("readline", ReadLineRequest{ID: spawned.ID}, &line)
		assert.Equal(t, ReadData, line.Status)
		assert.Equal(t, "hello\r\n", line.Data)
	}

	timeout := 100
	var read ReadResponse
	c.ok("read", ReadRequest{ID: spawned.ID, TimeoutMs: &timeout}, &read)
	assert.Equal(t, ReadTimeout, read.Status)

	var alive AliveResponse
	c.ok("alive", SessionRequest{ID: spawned.ID}, &alive)
	assert.True(t, alive.Alive)

	var list ListResponse
	c.ok("list", nil, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, spawned.ID, list.Sessions[0].ID)
	assert.Equal(t, "active", list.Sessions[0].Status)

	c.ok("resize", ResizeRequest{ID: spawned.ID, Rows: 50, Cols: 132}, nil)

	var terminated TerminateResponse
	c.ok("terminate", TerminateRequest{ID: spawned.ID, Force: true}, &terminated)
	assert.True(t, terminated.Terminated)

	c.ok("close", TerminateRequest{ID: spawned.ID}, nil)
	assert.Equal(t, 0, manager.Count())
}

func TestServerReadUntilEOF(t *testing.T) {
	c, _ := startServer(t)

	var spawned SpawnResponse
	c.ok("spawn", SpawnRequest{Path: "sh", Args: []string{"-c", "printf done"}}, &spawned)

	var out strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	var read ReadResponse
	for time.Now().Before(deadline) {
		c.ok("read", ReadRequest{ID: spawned.ID, Size: 64}, &read)
		if read.Status == ReadEOF {
			break
		}
		out.WriteString(read.Data)
	}
	assert.Equal(t, ReadEOF, read.Status)
	assert.Equal(t, "done", out.String())

	var status StatusResponse
	c.ok("wait", SessionRequest{ID: spawned.ID}, &status)
	assert.Equal(t, 0, status.Code)
	assert.Equal(t, "exit status 0", status.Text)
}

func TestServerSendControl(t *testing.T) {
	c, _ := startServer(t)

	var spawned SpawnResponse
	c.ok("spawn", SpawnRequest{Path: "sleep", Args: []string{"30"}}, &spawned)

	var sent SendResponse
	c.ok("sendcontrol", SendControlRequest{ID: spawned.ID, Char: "c"}, &sent)
	assert.Equal(t, 1, sent.Written)

	var status StatusResponse
	c.ok("wait", SessionRequest{ID: spawned.ID}, &status)
	assert.Equal(t, 2, status.Signal)

	resp := c.call("sendcontrol", SendControlRequest{ID: spawned.ID, Char: "cc"})
	assert.False(t, resp.Ok)
	assert.Contains(t, resp.Err, "single character")
}

func TestServerErrors(t *testing.T) {
	c, _ := startServer(t)

	tests := []struct {
		action string
		data   interface{}
		want   string
	}{
		{"bogus", nil, "unknown action: bogus"},
		{"send", SendRequest{Data: "x"}, "session ID is required"},
		{"send", SendRequest{ID: "missing", Data: "x"}, pty.ErrSessionNotFound.Error()},
		{"close", TerminateRequest{ID: "missing"}, pty.ErrSessionNotFound.Error()},
		{"resize", ResizeRequest{ID: "missing", Rows: 0, Cols: 10}, "cols and rows must be positive"},
		{"read", "not an object", "invalid read request"},
		{"spawn", SpawnRequest{Path: "doesnotexist12345"}, "doesnotexist12345"},
	}
	for _, tt := range tests {
		resp := c.call(tt.action, tt.data)
		assert.False(t, resp.Ok, "action %s", tt.action)
		assert.Contains(t, resp.Err, tt.want, "action %s", tt.action)
	}
}

func TestServerStopTwice(t *testing.T) {
	dir, err := os.MkdirTemp("", "wpe")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	server := NewServer(filepath.Join(dir, "pty.sock"), pty.NewManager())
	require.NoError(t, server.Listen())
	done := make(chan error, 1)
	go func() { done <- server.Serve() }()

	server.Stop()
	assert.NotPanics(t, server.Stop)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}
