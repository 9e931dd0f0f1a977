package ftp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reply is a single fully-framed control-channel reply: a three-digit
// status code and its message text, with CRLF framing stripped.
type Reply struct {
	Code    int
	Message string
	Lines   []string
}

func (r *Reply) Is1xx() bool { return r.Code >= 100 && r.Code < 200 }
func (r *Reply) Is2xx() bool { return r.Code >= 200 && r.Code < 300 }
func (r *Reply) Is3xx() bool { return r.Code >= 300 && r.Code < 400 }
func (r *Reply) Is4xx() bool { return r.Code >= 400 && r.Code < 500 }
func (r *Reply) Is5xx() bool { return r.Code >= 500 && r.Code < 600 }

func (r *Reply) String() string { return strings.Join(r.Lines, "\n") }

// readReply reads one fully-framed reply from the control channel per
// RFC 959 4.2: either a single line "NNN SP text CRLF", or a multi-line
// reply that opens with "NNN-" and closes with a line "NNN SP text"
// carrying the same code. Continuation lines that begin with a space
// (the RFC 2389 convention, used by FEAT) are never mistaken for the
// closing line even if their first three bytes would otherwise match.
func readReply(r *bufio.Reader) (*Reply, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, &TransportError{Op: "read reply", Err: err}
	}
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 4 || !isStatusDigits(line[0:3]) {
		return nil, &MalformedReplyError{Line: line}
	}

	code, _ := strconv.Atoi(line[0:3])
	lines := []string{line}

	if line[3] == ' ' {
		return &Reply{Code: code, Message: line[4:], Lines: lines}, nil
	}
	if line[3] != '-' {
		return nil, &MalformedReplyError{Line: line}
	}

	if err := readReplyTail(r, code, &lines); err != nil {
		return nil, err
	}

	var msg []string
	for _, l := range lines {
		switch {
		case len(l) > 0 && l[0] == ' ':
			msg = append(msg, strings.TrimSpace(l))
		case len(l) > 4:
			msg = append(msg, l[4:])
		}
	}
	return &Reply{Code: code, Message: strings.Join(msg, "\n"), Lines: lines}, nil
}

func readReplyTail(r *bufio.Reader, code int, lines *[]string) error {
	codeStr := strconv.Itoa(code)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return &TransportError{Op: "read reply", Err: err}
		}
		line = strings.TrimRight(line, "\r\n")

		if len(line) > 0 && line[0] == ' ' {
			*lines = append(*lines, line)
			continue
		}
		*lines = append(*lines, line)
		if len(line) >= 4 && line[0:3] == codeStr && line[3] == ' ' {
			return nil
		}
	}
}

func isStatusDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// writeCommand serializes verb [SP argument]* CRLF to w in one call, so a
// short write never leaves a partial command on the wire.
func writeCommand(w io.Writer, verb string, args ...string) error {
	cmd := verb
	if len(args) > 0 {
		cmd = verb + " " + strings.Join(args, " ")
	}
	if _, err := fmt.Fprintf(w, "%s\r\n", cmd); err != nil {
		return &TransportError{Op: verb, Err: err}
	}
	return nil
}
