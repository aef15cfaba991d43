package oscctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/zenibako/runsheet-golang/messages"
	"github.com/zenibako/runsheet-golang/runsheet"
)

// DefaultRequestTimeout bounds the store work done for a single OSC message.
const DefaultRequestTimeout = 5 * time.Second

// Server accepts operator commands from show-control desks over OSC and
// answers each one on the reply port.
type Server struct {
	runs      *runsheet.Runs
	addr      string
	replyHost string
	replyPort int
	timeout   time.Duration

	mu     sync.Mutex
	conn   net.PacketConn
	server *osc.Server
	reply  *osc.Client
	done   chan struct{}
}

// NewServer listens on addr (host:port) once started and replies to replyHost:replyPort.
func NewServer(runs *runsheet.Runs, addr, replyHost string, replyPort int) *Server {
	return &Server{
		runs:      runs,
		addr:      addr,
		replyHost: replyHost,
		replyPort: replyPort,
		timeout:   DefaultRequestTimeout,
	}
}

// SetTimeout changes the per-message deadline.
func (s *Server) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// Start binds the UDP socket and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("osc server already running on %s", s.conn.LocalAddr())
	}

	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("listen osc %s: %w", s.addr, err)
	}

	d := osc.NewStandardDispatcher()
	_ = d.AddMsgHandler("*", s.handleMessage)

	s.conn = conn
	s.server = &osc.Server{Addr: s.addr, Dispatcher: d}
	s.reply = osc.NewClient(s.replyHost, s.replyPort)
	s.done = make(chan struct{})

	server, done := s.server, s.done
	go func() {
		defer close(done)
		if err := server.Serve(conn); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Errorf("OSC server exited with error: %v", err)
		}
	}()

	log.Info("OSC control surface listening", "addr", conn.LocalAddr().String(), "reply", fmt.Sprintf("%s:%d", s.replyHost, s.replyPort))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Stop closes the socket and waits for the serve loop to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.server, s.done = nil, nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	log.Info("OSC control surface stopped")
	return err
}

func (s *Server) handleMessage(msg *osc.Message) {
	log.Debugf("Received OSC message: %s %v", msg.Address, msg.Arguments)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	args, requestID := splitRequestID(msg.Arguments)
	reply := s.Handle(ctx, msg.Address, args)
	reply.RequestID = requestID
	s.sendReply(reply)
}

// splitRequestID removes the trailing int32 request id a Client appends. No
// action takes an int32 argument of its own.
func splitRequestID(args []any) ([]any, int32) {
	if len(args) == 0 {
		return args, 0
	}
	id, ok := args[len(args)-1].(int32)
	if !ok {
		return args, 0
	}
	return args[:len(args)-1], id
}

func (s *Server) sendReply(reply Reply) {
	body, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("Failed to marshal reply data: %v", err)
		return
	}

	s.mu.Lock()
	client := s.reply
	s.mu.Unlock()
	if client == nil {
		return
	}

	msg := osc.NewMessage(messages.ReplyPrefix + reply.Address)
	msg.Append(string(body))
	if err := client.Send(msg); err != nil {
		log.Warn("Failed to send OSC reply", "address", msg.Address, "error", err)
		return
	}
	log.Debugf("Sent reply %s %s", msg.Address, reply.Status)
}

// Handle executes one control-surface message and returns its reply. It does
// no network I/O.
func (s *Server) Handle(ctx context.Context, address string, args []any) Reply {
	addr, err := messages.ParseAddress(address)
	if err != nil {
		return invalidRequest(address, "%v", err)
	}

	// only /new may bring a run into existence
	load := s.runs.Existing
	if addr.Action == messages.ActionNew {
		load = s.runs.Controller
	}
	c, err := load(ctx, addr.RunID)
	if err != nil {
		return errorReply(address, err)
	}

	switch addr.Action {
	case messages.ActionCues:
		return okReply(address, c.List())
	case messages.ActionBoard:
		return okReply(address, c.Board())
	case messages.ActionStats:
		return okReply(address, c.Stats())
	case messages.ActionReset:
		if err := c.ResetAll(ctx); err != nil {
			return errorReply(address, err)
		}
		return okReply(address, c.Stats())
	case messages.ActionNew:
		in, err := decodeCueInput(args)
		if err != nil {
			return invalidRequest(address, "%v", err)
		}
		cue, err := c.CreateCue(ctx, in)
		if err != nil {
			return errorReply(address, err)
		}
		return okReply(address, cue)
	case messages.ActionGet:
		cue, err := c.Get(addr.CueID)
		if err != nil {
			return errorReply(address, err)
		}
		return okReply(address, cue)
	case messages.ActionDelete:
		if err := c.DeleteCue(ctx, addr.CueID); err != nil {
			return errorReply(address, err)
		}
		return okReply(address, map[string]string{"id": addr.CueID})
	}

	cmd, err := runsheet.ParseCommand(addr.Action)
	if err != nil {
		return invalidRequest(address, "%v", err)
	}
	cue, err := c.Apply(ctx, addr.CueID, cmd)
	if err != nil {
		return errorReply(address, err)
	}
	return okReply(address, cue)
}

func decodeCueInput(args []any) (runsheet.CueInput, error) {
	if len(args) != 1 {
		return runsheet.CueInput{}, fmt.Errorf("expected one JSON string argument, got %d arguments", len(args))
	}
	body, ok := args[0].(string)
	if !ok {
		return runsheet.CueInput{}, fmt.Errorf("expected a JSON string argument, got %T", args[0])
	}
	var in runsheet.CueInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return runsheet.CueInput{}, fmt.Errorf("decode cue: %w", err)
	}
	return in, nil
}
