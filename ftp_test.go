package ftp

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"
)

// mockServer scripts a minimal FTP control channel for exercising the
// connect pipeline and individual operations without a real server.
type mockServer struct {
	listener net.Listener
	addr     string

	featLines []string
	handlers  map[string]func(c *textproto.Conn, args string)

	dataListener     net.Listener
	receivedCommands []string
	done             chan struct{}
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return &mockServer{
		listener:  l,
		addr:      l.Addr().String(),
		featLines: []string{"211-Features:", " MLST type*;size*;modify*;", " MLSD", " SIZE", " MDTM", " EPSV", " EPRT", " UTF8", "211 End"},
		handlers:  make(map[string]func(*textproto.Conn, string)),
		done:      make(chan struct{}),
	}
}

func (s *mockServer) start() {
	go func() {
		defer close(s.done)
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fmt.Fprintf(conn, "220 mock ready\r\n")
		tc := textproto.NewConn(conn)
		defer tc.Close()

		for {
			line, err := tc.ReadLine()
			if err != nil {
				return
			}
			parts := strings.SplitN(line, " ", 2)
			cmd := strings.ToUpper(parts[0])
			args := ""
			if len(parts) > 1 {
				args = parts[1]
			}
			s.receivedCommands = append(s.receivedCommands, cmd)

			if h, ok := s.handlers[cmd]; ok {
				h(tc, args)
				continue
			}

			switch cmd {
			case "FEAT":
				for _, l := range s.featLines {
					_ = tc.PrintfLine("%s", l)
				}
			case "USER":
				_ = tc.PrintfLine("331 need password")
			case "PASS":
				_ = tc.PrintfLine("230 logged in")
			case "TYPE":
				_ = tc.PrintfLine("200 type set")
			case "PWD":
				_ = tc.PrintfLine(`257 "/" is current directory`)
			case "QUIT":
				_ = tc.PrintfLine("221 bye")
				return
			default:
				_ = tc.PrintfLine("502 not implemented")
			}
		}
	}()
}

func (s *mockServer) stop() {
	s.listener.Close()
	if s.dataListener != nil {
		s.dataListener.Close()
	}
	<-s.done
}

// servePassiveData accepts exactly one data connection on a freshly bound
// listener and runs fn against it, then closes it.
func servePassiveData(t *testing.T, fn func(net.Conn)) (pasvPort int, ready chan struct{}) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	fmt.Sscanf(portStr, "%d", &pasvPort)
	ready = make(chan struct{})
	go func() {
		defer close(ready)
		defer l.Close()
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return pasvPort, ready
}

func pasvReply(port int) string {
	return fmt.Sprintf("227 Entering Passive Mode (127,0,0,1,%d,%d).", port/256, port%256)
}
