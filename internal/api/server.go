// Package api exposes pty sessions over a UNIX socket. Each request is one
// JSON object naming an action; each gets one JSON response.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

// Server handles UNIX socket connections and PTY session management.
type Server struct {
	socketPath string
	manager    *pty.Manager
	listener   net.Listener
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a new server instance backed by manager. A nil manager
// selects pty.DefaultManager.
func NewServer(socketPath string, manager *pty.Manager) *Server {
	if manager == nil {
		manager = pty.DefaultManager
	}
	return &Server{
		socketPath: socketPath,
		manager:    manager,
		stopChan:   make(chan struct{}),
	}
}

// Listen binds the socket, replacing a stale one left by a previous run.
func (s *Server) Listen() error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	log.Printf("[API] Server listening on %s", s.socketPath)
	return nil
}

// Serve accepts connections until Stop is called.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// Start binds the socket and serves connections until Stop is called.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop stops the server and closes the listener. Sessions are left to the
// manager's owner. Calling Stop more than once is harmless.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.listener != nil {
			s.listener.Close()
		}
		log.Println("[API] Server stopped")
	})
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				encoder.Encode(Response{Ok: false, Err: "invalid request: " + err.Error()})
			}
			return
		}

		data, err := s.dispatch(req)
		resp := Response{Ok: err == nil, Data: data}
		if err != nil {
			resp.Err = err.Error()
		}
		if err := encoder.Encode(resp); err != nil {
			log.Printf("[API] Failed to write response: %v", err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) (interface{}, error) {
	switch req.Action {
	case "spawn":
		return s.handleSpawn(req.Data)
	case "send":
		return s.handleSend(req.Data, false)
	case "sendline":
		return s.handleSend(req.Data, true)
	case "sendcontrol":
		return s.handleSendControl(req.Data)
	case "read":
		return s.handleRead(req.Data)
	case "readline":
		return s.handleReadLine(req.Data)
	case "resize":
		return s.handleResize(req.Data)
	case "alive":
		return s.handleAlive(req.Data)
	case "wait":
		return s.handleWait(req.Data)
	case "terminate":
		return s.handleTerminate(req.Data)
	case "close":
		return s.handleClose(req.Data)
	case "list":
		return s.handleList()
	default:
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
}

func decode(action string, data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid %s request: %w", action, err)
	}
	return nil
}

func requireID(id string) error {
	if id == "" {
		return errors.New("session ID is required")
	}
	return nil
}

func millis(ms *int) time.Duration {
	if ms == nil {
		return pty.DefaultTimeout
	}
	return time.Duration(*ms) * time.Millisecond
}

func (s *Server) handleSpawn(data json.RawMessage) (interface{}, error) {
	var req SpawnRequest
	if err := decode("spawn", data, &req); err != nil {
		return nil, err
	}

	path := req.Path
	if path == "" {
		shell, err := pty.DetectShell()
		if err != nil {
			return nil, err
		}
		path = shell
	}

	opts := pty.DefaultOptions()
	if req.Rows > 0 && req.Cols > 0 {
		opts.Rows, opts.Cols = req.Rows, req.Cols
	}
	if req.TimeoutMs != nil && *req.TimeoutMs >= 0 {
		opts.Timeout = millis(req.TimeoutMs)
	}

	sess, err := pty.Spawn(path, req.Args, opts)
	if err != nil {
		return nil, err
	}
	s.manager.Add(sess)
	log.Printf("[API] Session %s spawned (%s)", sess.ID, sess.Path)

	return SpawnResponse{ID: sess.ID, PID: sess.PID()}, nil
}

func (s *Server) handleSend(data json.RawMessage, line bool) (interface{}, error) {
	var req SendRequest
	if err := decode("send", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	var resp SendResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		var err error
		if line {
			resp.Written, err = sess.SendLine(req.Data)
		} else {
			resp.Written, err = sess.Send(req.Data)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleSendControl(data json.RawMessage) (interface{}, error) {
	var req SendControlRequest
	if err := decode("sendcontrol", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.Char) != 1 {
		return nil, errors.New("char must be a single character")
	}
	char, _ := utf8.DecodeRuneInString(req.Char)

	var resp SendResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		var err error
		resp.Written, err = sess.SendControl(char)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleRead(data json.RawMessage) (interface{}, error) {
	var req ReadRequest
	if err := decode("read", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	var resp ReadResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		buf, err := sess.ReadNonBlocking(req.Size, millis(req.TimeoutMs))
		switch {
		case err == nil:
			resp = ReadResponse{Status: ReadData, Data: string(buf)}
		case errors.Is(err, pty.ErrTimeout):
			resp = ReadResponse{Status: ReadTimeout}
		case errors.Is(err, io.EOF):
			resp = ReadResponse{Status: ReadEOF}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleReadLine(data json.RawMessage) (interface{}, error) {
	var req ReadLineRequest
	if err := decode("readline", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	var resp ReadResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		line, err := sess.ReadLine(req.Delimiter, req.Max)
		switch {
		case err == nil && line == "":
			resp = ReadResponse{Status: ReadTimeout}
		case err == nil:
			resp = ReadResponse{Status: ReadData, Data: line}
		case errors.Is(err, io.EOF):
			resp = ReadResponse{Status: ReadEOF, Data: line}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleResize(data json.RawMessage) (interface{}, error) {
	var req ResizeRequest
	if err := decode("resize", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	if req.Cols <= 0 || req.Rows <= 0 || req.Cols > 0xffff || req.Rows > 0xffff {
		return nil, errors.New("cols and rows must be positive")
	}

	return nil, s.manager.Do(req.ID, func(sess *pty.Session) error {
		return sess.SetWindowSize(uint16(req.Rows), uint16(req.Cols))
	})
}

func (s *Server) handleAlive(data json.RawMessage) (interface{}, error) {
	var req SessionRequest
	if err := decode("alive", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	var resp AliveResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		var err error
		resp.Alive, err = sess.IsAlive()
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleWait(data json.RawMessage) (interface{}, error) {
	var req SessionRequest
	if err := decode("wait", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	var resp StatusResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		status, err := sess.Wait()
		if errors.Is(err, pty.ErrDeadProcess) {
			// Already reaped by an earlier call; report what was recorded.
			status, _ = sess.ExitStatus()
		} else if err != nil {
			return err
		}
		resp = statusResponse(status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func statusResponse(status pty.ExitStatus) StatusResponse {
	return StatusResponse{
		Code:   status.Code,
		Signal: int(status.Signal),
		Text:   status.String(),
	}
}

func (s *Server) handleTerminate(data json.RawMessage) (interface{}, error) {
	var req TerminateRequest
	if err := decode("terminate", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	var resp TerminateResponse
	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		var err error
		resp.Terminated, err = sess.Terminate(req.Force)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleClose(data json.RawMessage) (interface{}, error) {
	var req TerminateRequest
	if err := decode("close", data, &req); err != nil {
		return nil, err
	}
	if err := requireID(req.ID); err != nil {
		return nil, err
	}

	err := s.manager.Do(req.ID, func(sess *pty.Session) error {
		return sess.Close(req.Force)
	})
	if errors.Is(err, pty.ErrSessionNotFound) {
		return nil, err
	}
	// A closed session is unusable even if its child survived.
	s.manager.Remove(req.ID)
	log.Printf("[API] Session %s closed", req.ID)
	return nil, err
}

func (s *Server) handleList() (interface{}, error) {
	ids := s.manager.IDs()
	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		err := s.manager.Do(id, func(sess *pty.Session) error {
			info := SessionInfo{ID: sess.ID, Path: sess.Path, PID: sess.PID(), Status: "active"}
			alive, err := sess.IsAlive()
			switch {
			case err != nil || !alive:
				info.Status = "exited"
			case sess.EOF():
				info.Status = "eof"
			}
			infos = append(infos, info)
			return nil
		})
		if err != nil {
			// Removed between IDs and Do.
			continue
		}
	}

	return ListResponse{Sessions: infos, Count: len(infos)}, nil
}
