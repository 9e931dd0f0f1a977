package ftp

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestReadReply_SingleLine(t *testing.T) {
	t.Parallel()
	r := bufio.NewReader(strings.NewReader("220 Service ready.\r\n"))
	reply, err := readReply(r)
	if err != nil {
		t.Fatalf("readReply: %v", err)
	}
	if reply.Code != 220 || reply.Message != "Service ready." {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if !reply.Is2xx() {
		t.Fatal("expected Is2xx")
	}
}

func TestReadReply_MultiLine(t *testing.T) {
	t.Parallel()
	raw := "211-Extensions supported:\r\n MLST type*;size*;\r\n SIZE\r\n211 End\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	reply, err := readReply(r)
	if err != nil {
		t.Fatalf("readReply: %v", err)
	}
	if reply.Code != 211 {
		t.Fatalf("expected code 211, got %d", reply.Code)
	}
	if len(reply.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(reply.Lines), reply.Lines)
	}
}

func TestReadReply_MultiLineWithEmbeddedCodeLikePrefix(t *testing.T) {
	t.Parallel()
	// A continuation line that happens to start with the status code
	// digits but is space-prefixed must not be mistaken for the closer.
	raw := "150-Status\r\n 150 is not a terminator here\r\n150 Transfer starting\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	reply, err := readReply(r)
	if err != nil {
		t.Fatalf("readReply: %v", err)
	}
	if reply.Code != 150 || len(reply.Lines) != 3 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestReadReply_Malformed(t *testing.T) {
	t.Parallel()
	r := bufio.NewReader(strings.NewReader("not a reply\r\n"))
	if _, err := readReply(r); err == nil {
		t.Fatal("expected MalformedReplyError")
	}
}

func TestWriteCommand(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := writeCommand(&buf, "RETR", "a b.txt"); err != nil {
		t.Fatalf("writeCommand: %v", err)
	}
	if buf.String() != "RETR a b.txt\r\n" {
		t.Fatalf("unexpected wire bytes: %q", buf.String())
	}
}
