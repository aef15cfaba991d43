package oscctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/zenibako/runsheet-golang/messages"
	"github.com/zenibako/runsheet-golang/runsheet"
)

// ErrTimeout is returned when no reply arrives after every retry.
var ErrTimeout = errors.New("timeout waiting for reply from runsheet")

// Client sends control-surface commands for one run and waits for replies on
// a persistent listener bound to the reply port.
type Client struct {
	host       string
	port       int
	replyHost  string
	replyPort  int
	timeout    time.Duration
	maxRetries int

	client         *osc.Client
	addressBuilder *messages.OSCAddressBuilder

	replyHandlers    map[string]chan Reply
	replyHandlersMux sync.Mutex
	requestCounter   int
	counterMux       sync.Mutex

	serverMux sync.Mutex
	conn      net.PacketConn
	done      chan struct{}
}

// NewClient targets the server at host:port for runID. Replies are expected on port+1
// unless SetReplyPort says otherwise.
func NewClient(host string, port int, runID string) *Client {
	return &Client{
		host:           host,
		port:           port,
		replyHost:      host,
		replyPort:      port + 1,
		timeout:        5 * time.Second,
		maxRetries:     2,
		client:         osc.NewClient(host, port),
		addressBuilder: messages.NewOSCAddressBuilder(runID),
		replyHandlers:  make(map[string]chan Reply),
	}
}

// SetReplyPort sets where the listener binds. Call before Listen.
func (c *Client) SetReplyPort(host string, port int) {
	c.replyHost = host
	c.replyPort = port
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// SetMaxRetries bounds resends after a timeout. Only read-only requests are
// resent; a command that times out is reported as ErrTimeout at once.
func (c *Client) SetMaxRetries(retries int) {
	if retries >= 0 {
		c.maxRetries = retries
	}
}

// RunID returns the run this client addresses.
func (c *Client) RunID() string {
	return c.addressBuilder.RunID()
}

// Listen starts the persistent reply listener.
func (c *Client) Listen() error {
	c.serverMux.Lock()
	defer c.serverMux.Unlock()

	if c.conn != nil {
		log.Debugf("Reply listener already running")
		return nil
	}

	replyAddr := fmt.Sprintf("%s:%d", c.replyHost, c.replyPort)
	conn, err := net.ListenPacket("udp", replyAddr)
	if err != nil {
		return fmt.Errorf("listen for replies on %s: %w", replyAddr, err)
	}

	d := osc.NewStandardDispatcher()
	_ = d.AddMsgHandler("*", c.routeReply)
	server := &osc.Server{Addr: replyAddr, Dispatcher: d}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(conn); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Errorf("OSC reply listener exited with error: %v", err)
		}
	}()

	c.conn, c.done = conn, done
	log.Debugf("Started reply listener on %s", conn.LocalAddr())
	return nil
}

// Close stops the reply listener.
func (c *Client) Close() error {
	c.serverMux.Lock()
	conn, done := c.conn, c.done
	c.conn, c.done = nil, nil
	c.serverMux.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}

func (c *Client) routeReply(msg *osc.Message) {
	if !strings.HasPrefix(msg.Address, messages.ReplyPrefix) {
		log.Debugf("Ignoring non-reply message: %s", msg.Address)
		return
	}
	reply, err := parseReply(msg.Arguments)
	if err != nil {
		log.Warnf("Ignoring malformed reply on %s: %v", msg.Address, err)
		return
	}

	c.replyHandlersMux.Lock()
	key, handler := c.pendingFor(msg.Address, reply.RequestID)
	if handler != nil {
		delete(c.replyHandlers, key)
	}
	c.replyHandlersMux.Unlock()

	if handler != nil {
		handler <- reply
	} else {
		log.Debugf("No handler found for reply: %s (requestID: %d)", msg.Address, reply.RequestID)
	}
}

// pendingFor finds the handler waiting on a reply. Replies that carry no request
// id go to the oldest request for the address. Callers hold replyHandlersMux.
func (c *Client) pendingFor(address string, requestID int32) (string, chan Reply) {
	if requestID != 0 {
		key := fmt.Sprintf("%s#%d", address, requestID)
		return key, c.replyHandlers[key]
	}

	var foundKey string
	var foundHandler chan Reply
	lowest := -1
	for handlerKey, handler := range c.replyHandlers {
		base, id, ok := strings.Cut(handlerKey, "#")
		if !ok || base != address {
			continue
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if lowest < 0 || n < lowest {
			lowest, foundKey, foundHandler = n, handlerKey, handler
		}
	}
	return foundKey, foundHandler
}

func (c *Client) nextRequestID() int {
	c.counterMux.Lock()
	defer c.counterMux.Unlock()
	c.requestCounter++
	return c.requestCounter
}

// Send delivers address with args and returns the decoded reply. Listen must
// have been called.
func (c *Client) Send(address string, args ...any) (Reply, error) {
	c.serverMux.Lock()
	listening := c.conn != nil
	c.serverMux.Unlock()
	if !listening {
		return Reply{}, fmt.Errorf("reply listener not started")
	}

	retries := 0
	if parsed, err := messages.ParseAddress(address); err == nil && parsed.ReadOnly() {
		retries = c.maxRetries
	}

	replyAddress := c.addressBuilder.BuildReplyAddress(address)
	for attempt := 0; attempt <= retries; attempt++ {
		requestID := c.nextRequestID()
		msg := osc.NewMessage(address)
		for _, arg := range args {
			msg.Append(arg)
		}
		msg.Append(int32(requestID))

		key := fmt.Sprintf("%s#%d", replyAddress, requestID)
		reply := make(chan Reply, 1)
		c.replyHandlersMux.Lock()
		c.replyHandlers[key] = reply
		c.replyHandlersMux.Unlock()

		startTime := time.Now()
		if err := c.client.Send(msg); err != nil {
			c.dropHandler(key)
			log.Warnf("Failed to send OSC message: %v", err)
			continue
		}
		log.Debugf("Message sent to %s:%d - %s (attempt %d/%d, requestID: %d)", c.host, c.port, address, attempt+1, retries+1, requestID)

		select {
		case result := <-reply:
			log.Debugf("Reply received for %s in %v (requestID: %d)", address, time.Since(startTime), requestID)
			return result, nil
		case <-time.After(c.timeout):
			c.dropHandler(key)
			if attempt < retries {
				log.Debugf("Timeout waiting for reply for %s (attempt %d/%d), retrying...", address, attempt+1, retries+1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
	log.Warnf("Timeout waiting for reply for %s after %d attempt(s)", address, retries+1)
	return Reply{}, fmt.Errorf("%s: %w", address, ErrTimeout)
}

func (c *Client) dropHandler(key string) {
	c.replyHandlersMux.Lock()
	delete(c.replyHandlers, key)
	c.replyHandlersMux.Unlock()
}

func (c *Client) call(address string, out any, args ...any) error {
	if address == "" {
		return fmt.Errorf("cannot build address for run %q", c.RunID())
	}
	reply, err := c.Send(address, args...)
	if err != nil {
		return err
	}
	return reply.Decode(out)
}

// Cues lists the run in scheduled order.
func (c *Client) Cues() ([]runsheet.Cue, error) {
	var cues []runsheet.Cue
	err := c.call(c.addressBuilder.BuildAddress(messages.MsgRunCues, nil), &cues)
	return cues, err
}

// Board lists the run with due states.
func (c *Client) Board() ([]runsheet.BoardEntry, error) {
	var board []runsheet.BoardEntry
	err := c.call(c.addressBuilder.BuildAddress(messages.MsgRunBoard, nil), &board)
	return board, err
}

func (c *Client) Stats() (runsheet.Stats, error) {
	var stats runsheet.Stats
	err := c.call(c.addressBuilder.BuildAddress(messages.MsgRunStats, nil), &stats)
	return stats, err
}

// ResetAll returns every cue to upcoming and reports the new stats.
func (c *Client) ResetAll() (runsheet.Stats, error) {
	var stats runsheet.Stats
	err := c.call(c.addressBuilder.BuildAddress(messages.MsgRunReset, nil), &stats)
	return stats, err
}

func (c *Client) CreateCue(in runsheet.CueInput) (runsheet.Cue, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return runsheet.Cue{}, err
	}
	var cue runsheet.Cue
	err = c.call(c.addressBuilder.BuildAddress(messages.MsgRunNew, nil), &cue, string(body))
	return cue, err
}

func (c *Client) Get(cueID string) (runsheet.Cue, error) {
	var cue runsheet.Cue
	err := c.call(c.addressBuilder.BuildCueAddress(messages.MsgCueGet, cueID), &cue)
	return cue, err
}

// Command runs start, complete, skip or delay against a cue.
func (c *Client) Command(cueID string, cmd runsheet.Command) (runsheet.Cue, error) {
	msgType, ok := messages.CueCommandTypes[string(cmd)]
	if !ok {
		return runsheet.Cue{}, fmt.Errorf("unknown cue command %q", cmd)
	}
	var cue runsheet.Cue
	err := c.call(c.addressBuilder.BuildCueAddress(msgType, cueID), &cue)
	return cue, err
}

func (c *Client) Delete(cueID string) error {
	return c.call(c.addressBuilder.BuildCueAddress(messages.MsgCueDelete, cueID), nil)
}
