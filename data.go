package ftp

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// pendingDataConn is the result of negotiate: either an already-connected
// passive socket, or a bound active-mode listener whose accept is deferred
// to finalize, per §4.4.
type pendingDataConn struct {
	conn     net.Conn     // set for the passive path
	listener net.Listener // set for the active path
}

// negotiate establishes the data channel per the session's configured mode.
// Precondition: the session is Ready and the coordinator lock is held.
func (s *Client) negotiate() (*pendingDataConn, error) {
	if s.activeMode {
		return s.negotiateActive()
	}
	return s.negotiatePassive()
}

func (s *Client) negotiatePassive() (*pendingDataConn, error) {
	if s.features.EPSV && !s.disableEPSV {
		reply, err := s.sendLocked("EPSV")
		if err != nil {
			return nil, err
		}
		if reply.Code == 502 {
			s.disableEPSV = true
		} else if reply.Is2xx() {
			port, err := parseEPSV(reply.Message)
			if err != nil {
				return nil, err
			}
			return s.dialPassive(net.JoinHostPort(s.host, fmt.Sprintf("%d", port)))
		} else {
			return nil, &UnexpectedStatusError{Expected: 229, Got: reply.Code, Message: reply.Message}
		}
	}

	reply, err := s.sendLocked("PASV")
	if err != nil {
		return nil, err
	}
	if reply.Code != 227 {
		return nil, &UnexpectedStatusError{Expected: 227, Got: reply.Code, Message: reply.Message}
	}
	addr, err := parsePASV(reply.Message)
	if err != nil {
		return nil, err
	}
	return s.dialPassive(resolveDataAddr(addr, s.host))
}

// resolveDataAddr substitutes the control connection's host when the
// server reports an unroutable 0.0.0.0 in its PASV reply.
func resolveDataAddr(addr, controlHost string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return addr
}

func (s *Client) dialPassive(addr string) (*pendingDataConn, error) {
	conn, err := s.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial data connection", Err: err}
	}
	return &pendingDataConn{conn: conn}, nil
}

func (s *Client) negotiateActive() (*pendingDataConn, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(s.activeIP, fmt.Sprintf("%d", s.activePort)))
	if err != nil {
		return nil, &TransportError{Op: "bind active listener", Err: err}
	}

	addr := listener.Addr().String()
	_, _, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		listener.Close()
		return nil, &TransportError{Op: "bind active listener", Err: splitErr}
	}

	if s.activeIPv6 {
		if !s.features.EPRT {
			listener.Close()
			return nil, &FeatureUnsupportedError{Feature: "EPRT"}
		}
		eprt, err := formatEPRT(addr)
		if err != nil {
			listener.Close()
			return nil, err
		}
		reply, err := s.sendLocked("EPRT", eprt)
		if err != nil {
			listener.Close()
			return nil, err
		}
		if reply.Code != 200 {
			listener.Close()
			return nil, &UnexpectedStatusError{Expected: 200, Got: reply.Code, Message: reply.Message}
		}
		return &pendingDataConn{listener: listener}, nil
	}

	if s.features.EPRT {
		eprt, err := formatEPRT(addr)
		if err != nil {
			listener.Close()
			return nil, err
		}
		reply, err := s.sendLocked("EPRT", eprt)
		if err != nil {
			listener.Close()
			return nil, err
		}
		if reply.Code != 200 {
			listener.Close()
			return nil, &UnexpectedStatusError{Expected: 200, Got: reply.Code, Message: reply.Message}
		}
		return &pendingDataConn{listener: listener}, nil
	}

	port, err := formatPORT(addr)
	if err != nil {
		listener.Close()
		return nil, err
	}
	reply, err := s.sendLocked("PORT", port)
	if err != nil {
		listener.Close()
		return nil, err
	}
	if reply.Code != 200 {
		listener.Close()
		return nil, &UnexpectedStatusError{Expected: 200, Got: reply.Code, Message: reply.Message}
	}
	return &pendingDataConn{listener: listener}, nil
}

// finalize completes data channel acquisition after the transfer verb has
// been acknowledged with a 150, per §4.4: accepting the deferred
// active-mode connection, or using the already-connected passive socket,
// then wrapping in TLS if the session requires it.
func (s *Client) finalize(p *pendingDataConn) (net.Conn, error) {
	conn := p.conn
	if p.listener != nil {
		defer p.listener.Close()
		if s.timeout > 0 {
			if tl, ok := p.listener.(*net.TCPListener); ok {
				_ = tl.SetDeadline(time.Now().Add(s.timeout))
			}
		}
		c, err := p.listener.Accept()
		if err != nil {
			return nil, &TransportError{Op: "accept active data connection", Err: err}
		}
		conn = c
	}

	if s.tlsConfig != nil {
		tlsConn := tls.Client(conn, s.tlsConfig)
		if s.timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(s.timeout))
		}
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, &TransportError{Op: "data connection TLS handshake", Err: err}
		}
		conn = tlsConn
	}

	if s.timeout > 0 {
		conn = &dataDeadlineConn{Conn: conn, timeout: s.timeout}
	}
	return conn, nil
}

// dataDeadlineConn refreshes the data socket's read/write deadline before
// every I/O call. Unlike the control channel, where sendLocked sets one
// deadline per command/reply round trip, a data transfer's Read/Write calls
// are driven by the caller (DownloadStream/UploadStream, List's scanner)
// over an arbitrary number of syscalls, so the deadline has to be renewed
// per call rather than once at negotiate/finalize time.
type dataDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *dataDeadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *dataDeadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// abort releases a negotiated-but-not-finalized data channel, used when an
// error occurs between negotiate and finalize.
func (p *pendingDataConn) abort() error {
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	if p.listener != nil {
		if lerr := p.listener.Close(); err == nil {
			err = lerr
		}
	}
	return err
}
