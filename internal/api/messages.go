package api

import "encoding/json"

// Request represents an incoming request over the UNIX socket.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Response represents a response to a request.
type Response struct {
	Ok   bool        `json:"ok"`
	Err  string      `json:"err,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// Read outcomes reported in ReadResponse.Status.
const (
	ReadData    = "data"
	ReadTimeout = "timeout"
	ReadEOF     = "eof"
)

// SessionRequest addresses an existing session.
type SessionRequest struct {
	ID string `json:"id"`
}

// SpawnRequest is the data for a spawn action. An empty Path starts the
// user's shell.
type SpawnRequest struct {
	Path      string   `json:"path"`
	Args      []string `json:"args"`
	Rows      uint16   `json:"rows"`
	Cols      uint16   `json:"cols"`
	TimeoutMs *int     `json:"timeout_ms"`
}

// SpawnResponse is the data returned from a spawn action.
type SpawnResponse struct {
	ID  string `json:"id"`
	PID int    `json:"pid"`
}

// SendRequest is the data for send and sendline actions.
type SendRequest struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// SendControlRequest is the data for a sendcontrol action, e.g. "c" for ^C.
type SendControlRequest struct {
	ID   string `json:"id"`
	Char string `json:"char"`
}

// SendResponse reports how many bytes reached the terminal.
type SendResponse struct {
	Written int `json:"written"`
}

// ReadRequest is the data for a read action. A missing TimeoutMs uses the
// session's default timeout.
type ReadRequest struct {
	ID        string `json:"id"`
	Size      int    `json:"size"`
	TimeoutMs *int   `json:"timeout_ms"`
}

// ReadLineRequest is the data for a readline action.
type ReadLineRequest struct {
	ID        string `json:"id"`
	Delimiter string `json:"delimiter"`
	Max       int    `json:"max"`
}

// ReadResponse is the data returned from read and readline actions.
type ReadResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"`
}

// ResizeRequest is the data for a resize action.
type ResizeRequest struct {
	ID   string `json:"id"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// AliveResponse is the data returned from an alive action.
type AliveResponse struct {
	Alive bool `json:"alive"`
}

// StatusResponse describes how a child ended.
type StatusResponse struct {
	Code   int    `json:"code"`
	Signal int    `json:"signal,omitempty"`
	Text   string `json:"text"`
}

// TerminateRequest is the data for terminate and close actions.
type TerminateRequest struct {
	ID    string `json:"id"`
	Force bool   `json:"force"`
}

// TerminateResponse is the data returned from a terminate action.
type TerminateResponse struct {
	Terminated bool `json:"terminated"`
}

// ListResponse is the data returned from a list action.
type ListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

// SessionInfo contains information about a session.
type SessionInfo struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	PID    int    `json:"pid"`
	Status string `json:"status"` // "active", "eof" or "exited"
}
