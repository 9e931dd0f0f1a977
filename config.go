package ftp

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/text/encoding"
)

// Option is a functional option for configuring a Client before Dial
// runs the connect pipeline.
type Option func(*Client) error

type tlsMode int

const (
	tlsModeNone tlsMode = iota
	tlsModeExplicit
	tlsModeImplicit
)

const (
	defaultUser        = "anonymous"
	defaultPass        = "anonymous"
	defaultActiveIP    = "127.0.0.1"
	defaultActivePort  = 20
	defaultDialTimeout = 30 * time.Second
)

// WithCredentials sets the username and password used during the Auth
// phase of the connect pipeline. The default is anonymous/anonymous.
func WithCredentials(user, pass string) Option {
	return func(s *Client) error {
		s.user, s.pass = user, pass
		return nil
	}
}

// WithTimeout sets the timeout applied to the initial connection and to
// every subsequent control and data channel read/write.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Client) error {
		s.timeout = timeout
		return nil
	}
}

// WithIdleKeepAlive enables an automatic NOOP keep-alive once the control
// channel has been idle for the given duration. Zero disables it.
func WithIdleKeepAlive(d time.Duration) Option {
	return func(s *Client) error {
		s.idleKeepAlive = d
		return nil
	}
}

// WithExplicitTLS upgrades the control channel to TLS via AUTH TLS after
// the greeting, per RFC 2228. The config's ServerName should be set for
// certificate validation; a ClientSessionCache is added automatically if
// absent so data-channel TLS handshakes can reuse the control channel's
// session.
func WithExplicitTLS(config *tls.Config) Option {
	return func(s *Client) error {
		if s.tlsMode == tlsModeImplicit {
			return fmt.Errorf("ftp: explicit TLS cannot be combined with implicit TLS")
		}
		s.tlsConfig = tlsConfigWithSessionCache(config)
		s.tlsMode = tlsModeExplicit
		return nil
	}
}

// WithImplicitTLS wraps the control socket in TLS before any command is
// sent, conventionally on port 990.
func WithImplicitTLS(config *tls.Config) Option {
	return func(s *Client) error {
		if s.tlsMode == tlsModeExplicit {
			return fmt.Errorf("ftp: implicit TLS cannot be combined with explicit TLS")
		}
		s.tlsConfig = tlsConfigWithSessionCache(config)
		s.tlsMode = tlsModeImplicit
		return nil
	}
}

func tlsConfigWithSessionCache(config *tls.Config) *tls.Config {
	if config == nil {
		config = &tls.Config{}
	}
	if config.ClientSessionCache == nil {
		config.ClientSessionCache = tls.NewLRUClientSessionCache(0)
	}
	return config
}

// WithLogger attaches a structured logger; the dial, the greeting, and every
// command/reply exchange are logged at debug level and TLS advisories at
// warn level, all tagged with the session's correlation id.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Client) error {
		s.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer for establishing the control and
// data connections.
func WithDialer(dialer *net.Dialer) Option {
	return func(s *Client) error {
		s.dialer = dialer
		return nil
	}
}

// WithActiveMode switches the Data Channel Negotiator to active mode
// (PORT/EPRT): the session binds a listener on (ip, port) and the server
// connects to it, instead of the default passive mode.
func WithActiveMode(ip string, port int, ipv6 bool) Option {
	return func(s *Client) error {
		s.activeMode = true
		s.activeIP = ip
		s.activePort = port
		s.activeIPv6 = ipv6
		return nil
	}
}

// WithDisableEPSV forces passive mode to use PASV directly instead of
// trying EPSV first. Useful for servers that advertise EPSV but handle it
// incorrectly.
func WithDisableEPSV() Option {
	return func(s *Client) error {
		s.disableEPSV = true
		return nil
	}
}

// WithBandwidthLimit caps transfer throughput at bytesPerSecond on every
// data connection (download, upload, list, extendedList). Zero (the
// default) leaves transfers unshaped.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(s *Client) error {
		s.bandwidthLimit = bytesPerSecond
		return nil
	}
}

// WithCharset overrides the codec used to decode/encode path and listing
// bytes when the server does not advertise UTF8. The default is
// ISO-8859-1.
func WithCharset(enc encoding.Encoding) Option {
	return func(s *Client) error {
		s.charset = enc
		return nil
	}
}

// WithMetrics registers a TCPInfoCollector; every data connection opened
// for a transfer is added to it on open and removed on teardown.
func WithMetrics(collector *TCPInfoCollector) Option {
	return func(s *Client) error {
		s.metrics = collector
		return nil
	}
}
