package ftp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Pwd returns the server's current working directory via PWD.
func (c *Client) Pwd() (string, error) {
	reply, err := c.expectCode("PWD", 257, "PWD")
	if err != nil {
		return "", err
	}
	path, err := parsePWD(reply.Message)
	if err != nil {
		return "", err
	}
	return c.decodePath(path), nil
}

// ChangeDir changes the working directory via CWD.
func (c *Client) ChangeDir(path string) error {
	_, err := c.expect2xx("CWD", "CWD", c.encodePath(path))
	return err
}

// Cdup changes to the parent of the current working directory via CDUP.
func (c *Client) Cdup() error {
	_, err := c.expect2xx("CDUP", "CDUP")
	return err
}

// MakeDir creates a directory via MKD.
func (c *Client) MakeDir(path string) error {
	_, err := c.expectCode("MKD", 257, "MKD", c.encodePath(path))
	return err
}

// RemoveDir removes an empty directory via RMD.
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", "RMD", c.encodePath(path))
	return err
}

// Delete removes a file via DELE.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", "DELE", c.encodePath(path))
	return err
}

// Rename renames from to to via the RNFR/RNTO sequence, performed under a
// single lock acquisition so no other operation can interleave. If the
// server rejects RNFR (typically 550, file not found), RNTO is never sent
// and the RNFR failure is returned directly.
func (c *Client) Rename(from, to string) error {
	if err := c.acquireReady("RENAME"); err != nil {
		return err
	}
	defer c.mu.Unlock()

	reply, err := c.sendLocked("RNFR", c.encodePath(from))
	if err != nil {
		return err
	}
	if reply.Code != 350 {
		return &UnexpectedStatusError{Expected: 350, Got: reply.Code, Message: reply.Message}
	}

	reply, err = c.sendLocked("RNTO", c.encodePath(to))
	if err != nil {
		return err
	}
	if !reply.Is2xx() {
		return &UnexpectedStatusError{Expected: 250, Got: reply.Code, Message: reply.Message}
	}
	return nil
}

// Size returns a file's size in bytes via SIZE. SIZE is unreliable on
// directories across implementations, so callers wanting directory sizes
// should use Stat or ExtendedList instead.
func (c *Client) Size(path string) (int64, error) {
	if err := c.acquireReady("SIZE"); err != nil {
		return 0, err
	}
	defer c.mu.Unlock()
	if c.features != nil && !c.features.Has("SIZE") {
		return 0, &FeatureUnsupportedError{Feature: "SIZE"}
	}

	reply, err := c.sendLocked("SIZE", c.encodePath(path))
	if err != nil {
		return 0, err
	}
	if reply.Code != 213 {
		return 0, &UnexpectedStatusError{Expected: 213, Got: reply.Code, Message: reply.Message}
	}
	size, err := strconv.ParseInt(strings.TrimSpace(reply.Message), 10, 64)
	if err != nil {
		return 0, &ParseError{Kind: "SIZE", Input: reply.Message, Err: err}
	}
	return size, nil
}

// ModTime returns a file's last modification time via MDTM, always in UTC.
func (c *Client) ModTime(path string) (time.Time, error) {
	if err := c.acquireReady("MDTM"); err != nil {
		return time.Time{}, err
	}
	defer c.mu.Unlock()
	if c.features != nil && !c.features.Has("MDTM") {
		return time.Time{}, &FeatureUnsupportedError{Feature: "MDTM"}
	}

	reply, err := c.sendLocked("MDTM", c.encodePath(path))
	if err != nil {
		return time.Time{}, err
	}
	if reply.Code != 213 {
		return time.Time{}, &UnexpectedStatusError{Expected: 213, Got: reply.Code, Message: reply.Message}
	}
	return parseMDTM(reply.Message)
}

// Stat returns a single entry's metadata, preferring MLST when the server
// advertises it. When MLST is unavailable, it falls back to SIZE/MDTM,
// inferring a directory from a 550 SIZE response.
func (c *Client) Stat(path string) (*FileInfo, error) {
	if err := c.acquireReady("STAT"); err != nil {
		return nil, err
	}

	if c.features != nil && c.features.Has("MLST") {
		reply, err := c.sendLocked("MLST", c.encodePath(path))
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if reply.Code != 250 {
			return nil, &UnexpectedStatusError{Expected: 250, Got: reply.Code, Message: reply.Message}
		}
		line := mlstFactLine(reply)
		if line == "" {
			return nil, &ParseError{Kind: "MLST entry", Input: reply.Message, Err: fmt.Errorf("no fact line in reply")}
		}
		_, info, err := parseMLSTEntry(strings.TrimSpace(line))
		if err != nil {
			return nil, err
		}
		return info, nil
	}

	defer c.mu.Unlock()
	size, sizeErr := c.sendLocked("SIZE", c.encodePath(path))
	if sizeErr != nil {
		return nil, sizeErr
	}
	info := &FileInfo{IsFile: true}
	switch {
	case size.Code == 213:
		if n, err := strconv.ParseInt(strings.TrimSpace(size.Message), 10, 64); err == nil {
			info.Size = n
		}
		if modReply, err := c.sendLocked("MDTM", c.encodePath(path)); err == nil && modReply.Code == 213 {
			if t, err := parseMDTM(modReply.Message); err == nil {
				info.ModTime = t
			}
		}
	case size.Code == 550:
		info.IsFile, info.IsDirectory = false, true
	default:
		return nil, &UnexpectedStatusError{Expected: 213, Got: size.Code, Message: size.Message}
	}

	return info, nil
}

// mlstFactLine extracts the single fact line from an MLST reply. Servers
// format the 250 reply to MLST inconsistently: most send it as a 3-line
// reply with the fact indented on the middle line.
func mlstFactLine(reply *Reply) string {
	for _, l := range reply.Lines {
		if len(l) > 0 && l[0] == ' ' {
			return l
		}
	}
	return reply.Message
}

// List returns raw directory listing lines via LIST, decoded per the
// session's charset. It performs no parsing of the listing format itself;
// use ExtendedList for structured entries.
func (c *Client) List(path string) ([]string, error) {
	conn, err := c.commandWithData("LIST", "LIST", pathArgs(c, path))
	if err != nil {
		return nil, err
	}

	lines, readErr := readLines(conn, c.bandwidthLimit)
	finErr := c.finishDataConn()
	if readErr != nil {
		return nil, capture(readErr, finErr)
	}
	if finErr != nil {
		return nil, finErr
	}

	for i := range lines {
		lines[i] = c.decodePath(lines[i])
	}
	return lines, nil
}

// MLSDEntry is one parsed entry from an MLSD listing.
type MLSDEntry struct {
	Name string
	Info *FileInfo
}

// ExtendedList returns structured directory entries via MLSD.
func (c *Client) ExtendedList(path string) ([]MLSDEntry, error) {
	if err := c.acquireReady("MLSD"); err != nil {
		return nil, err
	}
	if c.features != nil && !c.features.Has("MLSD") {
		c.mu.Unlock()
		return nil, &FeatureUnsupportedError{Feature: "MLSD"}
	}
	conn, err := c.openDataConnLocked("MLSD", pathArgs(c, path))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	lines, readErr := readLines(conn, c.bandwidthLimit)
	finErr := c.finishDataConn()
	if readErr != nil {
		return nil, capture(readErr, finErr)
	}
	if finErr != nil {
		return nil, finErr
	}

	entries := make([]MLSDEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, info, err := parseMLSTEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MLSDEntry{Name: c.decodePath(name), Info: info})
	}
	return entries, nil
}

func readLines(conn io.Reader, bandwidthLimit int64) ([]string, error) {
	r := shapeReader(conn, newLimiter(bandwidthLimit))
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, &TransportError{Op: "read listing", Err: err}
	}
	return lines, nil
}
