package ftp

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"golang.org/x/text/encoding"
)

type sessionState int

const (
	stateNew sessionState = iota
	stateReady
	stateClosed
)

// Client drives one logical FTP session over a dual-channel control/data
// transport: connection and greeting, feature negotiation, optional TLS
// upgrade, authentication, binary transfer mode, and the request/response
// cycle for every operation that follows. A Client is safe for concurrent
// use: every public operation is serialized through a single-holder lock
// so that command/reply/data-transfer sequences stay atomic on the
// half-duplex control channel.
type Client struct {
	host string
	port string

	conn   net.Conn
	reader *bufio.Reader

	tlsConfig *tls.Config
	tlsMode   tlsMode

	timeout       time.Duration
	idleKeepAlive time.Duration

	logger *slog.Logger
	dialer *net.Dialer

	user, pass string

	activeMode  bool
	activeIP    string
	activePort  int
	activeIPv6  bool
	disableEPSV bool

	bandwidthLimit int64
	charset        encoding.Encoding
	metrics        *TCPInfoCollector

	id string

	// mu is the coordinator lock (C6): acquired by every public operation
	// and released on every exit path, or transferred to the caller's
	// finalize obligation for the streaming variants.
	mu          sync.Mutex
	state       sessionState
	features    *Features
	currentType string

	// dataConn and activeListener are the session's short-lived,
	// exclusively-owned data resources. At most one is non-nil at a time.
	dataConn       net.Conn
	activeListener net.Listener

	quitChan    chan struct{}
	lastCommand time.Time
}

// Dial connects to an FTP server at addr ("host:port") and drives the
// connect pipeline (Connect -> Greet -> Feat -> TLS -> Auth -> Binary ->
// Ready) described in the package doc. The returned Client is Ready or
// Dial returns a non-nil error.
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("ftp: invalid address %q: %w", addr, err)
	}

	c := &Client{
		host:       host,
		port:       port,
		timeout:    defaultDialTimeout,
		tlsMode:    tlsModeNone,
		dialer:     &net.Dialer{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		user:       defaultUser,
		pass:       defaultPass,
		activeIP:   defaultActiveIP,
		activePort: defaultActivePort,
		id:         xid.New().String(),
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ftp: option: %w", err)
		}
	}
	c.dialer.Timeout = c.timeout
	c.logger = c.logger.With("session", c.id)

	if err := c.connect(); err != nil {
		return nil, err
	}

	c.lastCommand = time.Now()
	c.startKeepAlive()
	return c, nil
}

// Connect dials a server identified by a URL and runs the same pipeline as
// Dial. Supported schemes: "ftp" (plain, port 21), "ftps" (implicit TLS,
// port 990), "ftp+explicit" (explicit TLS via AUTH TLS, port 21).
// Credentials in the URL's userinfo replace the default anonymous login.
func Connect(urlStr string) (*Client, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("ftp: invalid URL: %w", err)
	}

	host := u.Hostname()
	port := u.Port()
	var options []Option

	switch strings.ToLower(u.Scheme) {
	case "ftp":
		if port == "" {
			port = "21"
		}
	case "ftps":
		if port == "" {
			port = "990"
		}
		options = append(options, WithImplicitTLS(&tls.Config{ServerName: host}))
	case "ftp+explicit":
		if port == "" {
			port = "21"
		}
		options = append(options, WithExplicitTLS(&tls.Config{ServerName: host}))
	default:
		return nil, fmt.Errorf("ftp: unsupported scheme %q", u.Scheme)
	}

	if user := u.User.Username(); user != "" {
		pass, _ := u.User.Password()
		options = append(options, WithCredentials(user, pass))
	}

	c, err := Dial(net.JoinHostPort(host, port), options...)
	if err != nil {
		return nil, err
	}

	if u.Path != "" && u.Path != "/" {
		if err := c.ChangeDir(u.Path); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("ftp: change to initial directory: %w", err)
		}
	}
	return c, nil
}

// connect runs the state machine's connect pipeline exactly once, per
// §4.5. On any failure the control socket, if opened, is closed and the
// Client must not be reused.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := net.JoinHostPort(c.host, c.port)
	c.logger.Debug("dialing", "addr", addr, "implicit_tls", c.tlsMode == tlsModeImplicit)

	var conn net.Conn
	var err error
	if c.tlsMode == tlsModeImplicit {
		raw, dialErr := c.dialer.Dial("tcp", addr)
		if dialErr != nil {
			return &TransportError{Op: "dial", Err: dialErr}
		}
		if c.timeout > 0 {
			_ = raw.SetDeadline(time.Now().Add(c.timeout))
		}
		tlsConn := tls.Client(raw, c.tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			raw.Close()
			return &TransportError{Op: "implicit TLS handshake", Err: err}
		}
		conn = tlsConn
	} else {
		conn, err = c.dialer.Dial("tcp", addr)
		if err != nil {
			return &TransportError{Op: "dial", Err: err}
		}
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)

	if c.timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	greeting, err := readReply(c.reader)
	if err != nil {
		conn.Close()
		return err
	}
	if greeting.Code != 220 {
		conn.Close()
		return &UnexpectedStatusError{Expected: 220, Got: greeting.Code, Message: greeting.Message}
	}
	c.logger.Debug("greeted", "code", greeting.Code)

	featReply, err := c.sendLocked("FEAT")
	if err != nil {
		conn.Close()
		return err
	}
	if featReply.Code == 211 {
		c.features = parseFeatures(featReply.Lines)
	} else {
		c.features = &Features{Overflow: map[string]string{}}
	}

	if c.tlsConfig != nil {
		if c.tlsMode == tlsModeExplicit {
			if !hasAuthMechanism(c.features, "TLS") {
				c.logger.Warn("server did not advertise AUTH TLS; attempting upgrade anyway")
			}
			if err := c.upgradeToTLS(); err != nil {
				conn.Close()
				return err
			}
		}
		if !c.features.Has("PROT") {
			c.logger.Warn("server did not advertise PROT; data channel protection is not guaranteed")
		}
		if _, err := c.sendLockedExpect(200, "PBSZ", "0"); err != nil {
			c.conn.Close()
			return err
		}
		if _, err := c.sendLockedExpect(200, "PROT", "P"); err != nil {
			c.conn.Close()
			return err
		}
	}

	if err := c.login(); err != nil {
		c.conn.Close()
		return err
	}

	if _, err := c.sendLockedExpect(200, "TYPE", "I"); err != nil {
		c.conn.Close()
		return err
	}
	c.currentType = "I"

	c.state = stateReady
	return nil
}

func hasAuthMechanism(f *Features, mech string) bool {
	for _, tok := range f.AUTH {
		if strings.EqualFold(tok, mech) {
			return true
		}
	}
	return false
}

// upgradeToTLS performs the explicit AUTH TLS handshake on the control
// channel. Precondition: mu held, c.conn set to the plaintext socket.
func (c *Client) upgradeToTLS() error {
	reply, err := c.sendLocked("AUTH", "TLS")
	if err != nil {
		return err
	}
	if reply.Code != 234 {
		return &UnexpectedStatusError{Expected: 234, Got: reply.Code, Message: reply.Message}
	}

	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	tlsConn := tls.Client(c.conn, c.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return &TransportError{Op: "control channel TLS handshake", Err: err}
	}
	c.conn = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	return nil
}

// login runs the Auth phase: USER, then PASS if challenged with 331.
func (c *Client) login() error {
	reply, err := c.sendLocked("USER", c.user)
	if err != nil {
		return err
	}
	if reply.Code == 230 {
		return nil
	}
	if reply.Code != 331 {
		return &UnexpectedStatusError{Expected: 331, Got: reply.Code, Message: reply.Message}
	}

	reply, err = c.sendLocked("PASS", c.pass)
	if err != nil {
		return err
	}
	if !reply.Is2xx() {
		return &UnexpectedStatusError{Expected: 230, Got: reply.Code, Message: reply.Message}
	}
	return nil
}

// startKeepAlive starts a goroutine that sends NOOP once the control
// channel has been idle for idleKeepAlive. It is serialized through the
// same coordinator lock as every other operation, so it never races a
// transfer; it simply waits its turn.
func (c *Client) startKeepAlive() {
	if c.idleKeepAlive <= 0 {
		return
	}
	c.quitChan = make(chan struct{})
	ticker := time.NewTicker(c.idleKeepAlive / 2)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				idle := c.state == stateReady && time.Since(c.lastCommand) >= c.idleKeepAlive
				c.mu.Unlock()
				if idle {
					_, _ = c.expect2xx("keepalive", "NOOP")
				}
			case <-c.quitChan:
				return
			}
		}
	}()
}

// Close releases the control connection. QUIT is sent on a best-effort
// basis; its result is not observable to the caller. Close is safe to call
// more than once. Close takes the coordinator lock, so while a reader or
// writer returned by DownloadStream or UploadStream is still open, Close
// blocks until that stream is closed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return nil
	}
	if c.quitChan != nil {
		close(c.quitChan)
		c.quitChan = nil
	}
	if c.dataConn != nil {
		c.dataConn.Close()
		c.dataConn = nil
	}
	if c.activeListener != nil {
		c.activeListener.Close()
		c.activeListener = nil
	}
	_, _ = c.sendLocked("QUIT")
	err := c.conn.Close()
	c.state = stateClosed
	return err
}

// Features returns the feature matrix populated once during the Feat
// phase of connect. It is never mutated after connect returns, so callers
// may retain the returned pointer.
func (c *Client) Features() *Features {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.features
}

// acquireReady locks the coordinator mutex and verifies the session is
// Ready. On success, the caller owns the lock and must release it (or, for
// a streaming operation, transfer that obligation to finishDataConn). On
// failure the lock has already been released.
func (c *Client) acquireReady(op string) error {
	c.mu.Lock()
	if c.state != stateReady {
		c.mu.Unlock()
		return &NotInitializedError{Op: op}
	}
	return nil
}

// sendLocked writes one command and reads the matching reply. Precondition:
// mu held and the control connection open. A transport failure is treated
// as fatal to the session per §4.5 ("[*] --fatal transport error--> Closed").
func (c *Client) sendLocked(verb string, args ...string) (*Reply, error) {
	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	if err := writeCommand(c.conn, verb, args...); err != nil {
		c.failLocked()
		return nil, err
	}
	reply, err := readReply(c.reader)
	if err != nil {
		c.failLocked()
		return nil, err
	}
	c.lastCommand = time.Now()
	c.logger.Debug("exchange", "verb", verb, "code", reply.Code)
	return reply, nil
}

// sendLockedExpect is sendLocked plus an exact-code assertion, used during
// connect before c.state is Ready (so the public expectCode helper, which
// requires Ready, does not apply yet).
func (c *Client) sendLockedExpect(code int, verb string, args ...string) (*Reply, error) {
	reply, err := c.sendLocked(verb, args...)
	if err != nil {
		return nil, err
	}
	if reply.Code != code {
		return nil, &UnexpectedStatusError{Expected: code, Got: reply.Code, Message: reply.Message}
	}
	return reply, nil
}

// failLocked transitions the session to Closed after a fatal transport
// error, releasing every socket the session owns. Precondition: mu held.
func (c *Client) failLocked() {
	if c.state == stateClosed {
		return
	}
	c.state = stateClosed
	if c.dataConn != nil {
		c.dataConn.Close()
		c.dataConn = nil
	}
	if c.activeListener != nil {
		c.activeListener.Close()
		c.activeListener = nil
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// expectCode acquires the lock, verifies Ready, runs one exchange, and
// asserts the reply carries exactly the given code. This is the shape
// every non-data, non-streaming public operation follows (§4.6).
func (c *Client) expectCode(op string, code int, verb string, args ...string) (*Reply, error) {
	if err := c.acquireReady(op); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	reply, err := c.sendLocked(verb, args...)
	if err != nil {
		return nil, err
	}
	if reply.Code != code {
		return nil, &UnexpectedStatusError{Expected: code, Got: reply.Code, Message: reply.Message}
	}
	return reply, nil
}

// expect2xx is expectCode without a fixed code, for commands whose
// success is any 2xx reply.
func (c *Client) expect2xx(op, verb string, args ...string) (*Reply, error) {
	if err := c.acquireReady(op); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	reply, err := c.sendLocked(verb, args...)
	if err != nil {
		return nil, err
	}
	if !reply.Is2xx() {
		return nil, &UnexpectedStatusError{Expected: 200, Got: reply.Code, Message: reply.Message}
	}
	return reply, nil
}

// openDataConnLocked runs the negotiate/send-verb/expect-150/finalize
// sequence shared by commandWithData and the streaming operations.
// Precondition: mu held. On success, c.dataConn is set and ownership of
// the lock transfers to the caller's corresponding finishDataConn call; on
// failure the lock is still held and the caller must release it.
func (c *Client) openDataConnLocked(verb string, args []string) (net.Conn, error) {
	pending, err := c.negotiate()
	if err != nil {
		return nil, err
	}
	reply, err := c.sendLocked(verb, args...)
	if err != nil {
		_ = pending.abort()
		return nil, err
	}
	if reply.Code != 150 {
		aerr := pending.abort()
		return nil, capture(&UnexpectedStatusError{Expected: 150, Got: reply.Code, Message: reply.Message}, aerr)
	}
	conn, err := c.finalize(pending)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.Add(conn, c.host)
	}
	c.dataConn = conn
	return conn, nil
}

// commandWithData implements §4.8 steps 1-2: acquire, negotiate, send,
// expect 150. The caller drains the returned connection and must call
// finishDataConn to complete steps 3-5 and release the lock.
func (c *Client) commandWithData(op, verb string, args []string) (net.Conn, error) {
	if err := c.acquireReady(op); err != nil {
		return nil, err
	}
	conn, err := c.openDataConnLocked(verb, args)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	return conn, nil
}

// finishDataConn implements §4.8 steps 3-5: close the data socket, read
// the trailing 226, and release the lock acquired by commandWithData or
// openDataConnLocked. Safe to call exactly once per acquisition.
func (c *Client) finishDataConn() error {
	conn := c.dataConn
	c.dataConn = nil

	var closeErr error
	if conn != nil {
		if c.metrics != nil {
			c.metrics.Remove(conn)
		}
		closeErr = conn.Close()
	}

	reply, err := readReply(c.reader)
	if err != nil {
		c.failLocked()
		c.mu.Unlock()
		return capture(err, closeErr)
	}
	c.mu.Unlock()
	if reply.Code != 226 {
		return capture(&UnexpectedStatusError{Expected: 226, Got: reply.Code, Message: reply.Message}, closeErr)
	}
	return capture(nil, closeErr)
}

func pathArgs(c *Client, path string) []string {
	if path == "" {
		return nil
	}
	return []string{c.encodePath(path)}
}
