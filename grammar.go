package ftp

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	pasvPattern = regexp.MustCompile(`\((\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3})\)`)
	epsvPattern = regexp.MustCompile(`\((.)(.)(.)(\d+)(.)\)`)
)

// parsePASV parses a PASV reply of the form "(h1,h2,h3,h4,p1,p2)" into a
// dialable "host:port" address.
func parsePASV(message string) (string, error) {
	m := pasvPattern.FindStringSubmatch(message)
	if m == nil {
		return "", &ParseError{Kind: "PASV", Input: message, Err: fmt.Errorf("no address tuple found")}
	}

	octets := make([]byte, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v < 0 || v > 255 {
			return "", &ParseError{Kind: "PASV", Input: message, Err: fmt.Errorf("invalid octet %q", m[i+1])}
		}
		octets[i] = byte(v)
	}

	p1, err1 := strconv.Atoi(m[5])
	p2, err2 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", &ParseError{Kind: "PASV", Input: message, Err: fmt.Errorf("invalid port octets %q,%q", m[5], m[6])}
	}

	host := net.IP(octets).String()
	port := p1<<8 | p2
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// parseEPSV parses an EPSV reply of the form "(|||port|)" into a port
// number. The delimiter character is conventionally "|" but RFC 2428
// allows any character so long as it is used consistently; this verifies
// that the four delimiter occurrences agree.
func parseEPSV(message string) (int, error) {
	m := epsvPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, &ParseError{Kind: "EPSV", Input: message, Err: fmt.Errorf("no port tuple found")}
	}
	delim := m[1]
	if m[2] != delim || m[3] != delim || m[5] != delim {
		return 0, &ParseError{Kind: "EPSV", Input: message, Err: fmt.Errorf("inconsistent delimiter")}
	}
	port, err := strconv.Atoi(m[4])
	if err != nil || port < 0 || port > 65535 {
		return 0, &ParseError{Kind: "EPSV", Input: message, Err: fmt.Errorf("invalid port %q", m[4])}
	}
	return port, nil
}

// formatPORT formats an IPv4 "host:port" address for the PORT command:
// "h1,h2,h3,h4,p1,p2".
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	ip4 := net.ParseIP(host).To4()
	if ip4 == nil {
		return "", fmt.Errorf("ftp: PORT requires an IPv4 address, got %q", host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("ftp: invalid port %q: %w", portStr, err)
	}
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip4[0], ip4[1], ip4[2], ip4[3], port/256, port%256), nil
}

// formatEPRT formats a "host:port" address for the EPRT command:
// "|net-prt|net-addr|tcp-port|" where net-prt is 1 for IPv4, 2 for IPv6.
func formatEPRT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("ftp: invalid IP address %q", host)
	}

	netPrt := 2
	if ip.To4() != nil {
		netPrt = 1
	}
	return fmt.Sprintf("|%d|%s|%s|", netPrt, host, portStr), nil
}

// parsePWD extracts the path between the first and matching closing double
// quote of a PWD (257) reply. A doubled quote inside the path represents a
// literal quote character.
func parsePWD(message string) (string, error) {
	start := strings.IndexByte(message, '"')
	if start == -1 {
		return "", &ParseError{Kind: "PWD", Input: message, Err: fmt.Errorf("missing opening quote")}
	}

	var b strings.Builder
	for i := start + 1; i < len(message); i++ {
		if message[i] != '"' {
			b.WriteByte(message[i])
			continue
		}
		if i+1 < len(message) && message[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), nil
	}
	return "", &ParseError{Kind: "PWD", Input: message, Err: fmt.Errorf("missing closing quote")}
}

const mdtmLayout = "20060102150405"

// parseMDTM parses an MDTM/MLST timestamp of the form
// "YYYYMMDDhhmmss[.fff]" into a UTC time. The wire format's month is
// 1-based, matching time.Parse's reference layout. No "T" separates the
// date and time per RFC 3659; a literal "T" (as in an ISO 8601 timestamp)
// is not valid input here.
func parseMDTM(message string) (time.Time, error) {
	s := strings.TrimSpace(message)
	whole := s
	var fracNanos time.Duration

	if idx := strings.IndexByte(s, '.'); idx != -1 {
		whole = s[:idx]
		frac, err := strconv.ParseFloat("0."+s[idx+1:], 64)
		if err != nil {
			return time.Time{}, &ParseError{Kind: "MDTM", Input: message, Err: err}
		}
		fracNanos = time.Duration(frac * float64(time.Second))
	}

	t, err := time.Parse(mdtmLayout, whole)
	if err != nil {
		return time.Time{}, &ParseError{Kind: "MDTM", Input: message, Err: err}
	}
	return t.UTC().Add(fracNanos), nil
}

// formatMDTM is the inverse of parseMDTM, used by encodeMLSTEntry and to
// verify the round-trip law in tests. Sub-millisecond
// precision is dropped, matching the wire format's ".fff" resolution.
func formatMDTM(t time.Time) string {
	u := t.UTC()
	s := u.Format(mdtmLayout)
	if ms := u.Nanosecond() / int(time.Millisecond); ms != 0 {
		s += fmt.Sprintf(".%03d", ms)
	}
	return s
}
