package avs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexa/avs-device-sdk-go/internal/log"
	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
)

// TokenProvider supplies bearer tokens for the downchannel handshake.
// *auth.Delegate satisfies this interface.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// DirectiveHandler is called for each directive received on the downchannel.
// Handlers run on the read loop goroutine and must not block.
type DirectiveHandler func(d *Directive)

// Client manages the persistent downchannel connection to the gateway.
// Text frames carry JSON directives, binary frames carry attachment
// chunks that are routed into the attachment registry by content ID.
type Client struct {
	cfg      Config
	registry attachment.Registry
	tokens   TokenProvider
	logger   *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	done      chan struct{}

	handlers   []DirectiveHandler
	handlersMu sync.RWMutex

	// Open attachment writers keyed by content ID. An empty binary
	// chunk closes the writer for that ID.
	writers   map[string]*attachment.Writer
	writersMu sync.Mutex
}

// New creates a downchannel client. The registry receives attachment
// data from binary frames and the token provider authenticates the
// websocket handshake.
func New(registry attachment.Registry, tokens TokenProvider, opts ...Option) (*Client, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if tokens == nil {
		return nil, ErrNoTokenProvider
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("avs")
	}

	return &Client{
		cfg:      cfg,
		registry: registry,
		tokens:   tokens,
		logger:   logger,
		writers:  make(map[string]*attachment.Writer),
	}, nil
}

// AddDirectiveHandler registers a handler for incoming directives.
func (c *Client) AddDirectiveHandler(h DirectiveHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Connect dials the gateway and starts the read and keepalive loops.
// When reconnection is enabled the client keeps redialing with capped
// exponential backoff until the context is cancelled or Close is called.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}

	go c.readLoop(ctx)

	return nil
}

func (c *Client) dial(ctx context.Context) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("downchannel auth: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.GatewayURL, header)
	if err != nil {
		return &ProtocolError{Op: "dial", Err: err}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	// One keepalive pinger per connection; it ends with the connection,
	// so a dropped session or cancelled context cannot leak it.
	go c.keepAlive(ctx, conn, done)

	c.logger.Info("downchannel connected", "gateway", c.cfg.GatewayURL)
	return nil
}

// SendEvent encodes and sends an event on the downchannel.
func (c *Client) SendEvent(ev *Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return c.writeMessage(websocket.TextMessage, data)
}

// SendAttachment sends one binary attachment chunk for the given
// content ID. An empty chunk signals end of content.
func (c *Client) SendAttachment(contentID string, chunk []byte) error {
	return c.writeMessage(websocket.BinaryMessage, EncodeFrame(contentID, chunk))
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return &ProtocolError{Op: "write", Err: err}
	}
	return nil
}

// Connected reports whether the downchannel is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
}

// Done returns a channel closed when the current connection ends.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Close shuts down the connection and stops reconnection attempts.
// Open attachment writers are closed so readers observe end of stream.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.connected = false
	c.mu.Unlock()

	c.closeWriters()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return conn.Close()
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		done := c.done
		c.mu.Unlock()
		if conn == nil {
			return
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			closed := c.closed
			c.mu.Unlock()

			c.closeWriters()
			close(done)

			if closed || ctx.Err() != nil {
				return
			}
			c.logger.Warn("downchannel read failed", "error", err)
			if !c.cfg.Reconnect || !c.redial(ctx) {
				return
			}
			continue
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleDirective(data)
		case websocket.BinaryMessage:
			c.handleAttachment(data)
		}
	}
}

func (c *Client) handleDirective(data []byte) {
	d, err := ParseDirective(data)
	if err != nil {
		c.logger.Warn("dropping malformed directive", "error", err)
		return
	}

	c.logger.Debug("directive received",
		"namespace", d.Header.Namespace,
		"name", d.Header.Name,
		"messageId", d.Header.MessageID)

	c.handlersMu.RLock()
	handlers := c.handlers
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(d)
	}
}

func (c *Client) handleAttachment(data []byte) {
	contentID, chunk, err := DecodeFrame(data)
	if err != nil {
		c.logger.Warn("dropping malformed attachment frame", "error", err)
		return
	}

	if len(chunk) == 0 {
		c.writersMu.Lock()
		w := c.writers[contentID]
		delete(c.writers, contentID)
		c.writersMu.Unlock()
		if w != nil {
			w.Close()
		}
		return
	}

	w, err := c.writerFor(contentID)
	if err != nil {
		c.logger.Warn("no writer for attachment", "contentId", contentID, "error", err)
		return
	}

	for len(chunk) > 0 {
		n, status := w.Write(chunk, attachmentWriteTimeout)
		if status != attachment.WriteOK {
			c.logger.Warn("attachment write failed",
				"contentId", contentID, "status", status.String())
			c.writersMu.Lock()
			delete(c.writers, contentID)
			c.writersMu.Unlock()
			w.Close()
			return
		}
		chunk = chunk[n:]
	}
}

const attachmentWriteTimeout = 5 * time.Second

func (c *Client) writerFor(contentID string) (*attachment.Writer, error) {
	c.writersMu.Lock()
	defer c.writersMu.Unlock()

	if w, ok := c.writers[contentID]; ok {
		return w, nil
	}
	w, err := c.registry.CreateWriter(contentID, attachment.WriterBlocking)
	if err != nil {
		return nil, err
	}
	c.writers[contentID] = w
	return w, nil
}

func (c *Client) closeWriters() {
	c.writersMu.Lock()
	writers := c.writers
	c.writers = make(map[string]*attachment.Writer)
	c.writersMu.Unlock()

	for _, w := range writers {
		w.Close()
	}
}

func (c *Client) redial(ctx context.Context) bool {
	delay := reconnectBaseDelay
	for {
		c.logger.Info("reconnecting", "delay", delay)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return false
		}
		c.mu.Unlock()

		if err := c.dial(ctx); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}
		return true
	}
}

// keepAlive pings the given connection until it ends or the context is
// cancelled.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.closed || c.conn != conn || !c.connected {
			c.mu.Unlock()
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		c.mu.Unlock()
		if err != nil {
			c.logger.Debug("keepalive ping failed", "error", err)
		}
	}
}
