package ftp

import (
	"errors"
	"net"
	"net/textproto"
	"testing"
	"time"
)

func dialMock(t *testing.T, ms *mockServer) *Client {
	t.Helper()
	ms.start()
	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		ms.stop()
	})
	return c
}

func TestDirectory_PwdChangeDirCdup(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.handlers["CWD"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("250 directory changed")
	}
	ms.handlers["CDUP"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("200 command okay")
	}
	c := dialMock(t, ms)

	dir, err := c.Pwd()
	if err != nil || dir != "/" {
		t.Fatalf("Pwd: %q, %v", dir, err)
	}
	if err := c.ChangeDir("/pub"); err != nil {
		t.Fatalf("ChangeDir: %v", err)
	}
	if err := c.Cdup(); err != nil {
		t.Fatalf("Cdup: %v", err)
	}
}

func TestDirectory_RenameShortCircuitsOnRNFRFailure(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.handlers["RNFR"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("550 no such file")
	}
	ms.handlers["RNTO"] = func(c *textproto.Conn, args string) {
		t.Error("RNTO must not be sent when RNFR fails")
		_ = c.PrintfLine("250 ok")
	}
	c := dialMock(t, ms)

	err := c.Rename("/a", "/b")
	if err == nil {
		t.Fatal("expected error")
	}
	var use *UnexpectedStatusError
	if !errors.As(err, &use) || use.Expected != 350 {
		t.Fatalf("expected UnexpectedStatusError{Expected:350}, got %v", err)
	}
}

func TestDirectory_RenameSuccess(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.handlers["RNFR"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("350 ready for RNTO")
	}
	ms.handlers["RNTO"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("250 renamed")
	}
	c := dialMock(t, ms)

	if err := c.Rename("/a", "/b"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
}

func TestDirectory_SizeRequiresFeature(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.featLines = []string{"211-x", "211 End"} // no SIZE
	c := dialMock(t, ms)

	_, err := c.Size("/a")
	var fue *FeatureUnsupportedError
	if !errors.As(err, &fue) {
		t.Fatalf("expected FeatureUnsupportedError, got %v", err)
	}
}

func TestDirectory_StatFallbackToSizeAndMDTM(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.featLines = []string{"211-x", " SIZE", " MDTM", "211 End"} // no MLST
	ms.handlers["SIZE"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("213 4096")
	}
	ms.handlers["MDTM"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("213 20240102030405")
	}
	c := dialMock(t, ms)

	info, err := c.Stat("/a")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsFile || info.Size != 4096 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.ModTime.IsZero() {
		t.Fatal("expected ModTime to be populated")
	}
}

func TestDirectory_StatFallbackInfersDirectoryOn550(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.featLines = []string{"211-x", " SIZE", "211 End"}
	ms.handlers["SIZE"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("550 is a directory")
	}
	c := dialMock(t, ms)

	info, err := c.Stat("/dir")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDirectory {
		t.Fatalf("expected IsDirectory, got %+v", info)
	}
}

func TestDirectory_StatUsesMLST(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.handlers["MLST"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("250-Listing")
		_ = c.PrintfLine(" type=file;size=42;modify=20240102030405; a.txt")
		_ = c.PrintfLine("250 End")
	}
	c := dialMock(t, ms)

	info, err := c.Stat("a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsFile || info.Size != 42 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDirectory_ListOverPassive(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	port, ready := servePassiveData(t, func(conn net.Conn) {
		conn.Write([]byte("-rw-r--r-- 1 a a 10 Jan 01 00:00 file.txt\r\n"))
	})
	ms.handlers["EPSV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("502 not implemented")
	}
	ms.handlers["PASV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine(pasvReply(port))
	}
	ms.handlers["LIST"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 opening data connection")
		<-ready
		_ = c.PrintfLine("226 transfer complete")
	}
	c := dialMock(t, ms)

	lines, err := c.List(".")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 || lines[0] == "" {
		t.Fatalf("unexpected listing: %v", lines)
	}
}

func TestDirectory_ExtendedListParsesEntries(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	port, ready := servePassiveData(t, func(conn net.Conn) {
		conn.Write([]byte("type=file;size=10; a.txt\r\ntype=dir;size=0; sub\r\n"))
	})
	ms.handlers["EPSV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("502 not implemented")
	}
	ms.handlers["PASV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine(pasvReply(port))
	}
	ms.handlers["MLSD"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 opening data connection")
		<-ready
		_ = c.PrintfLine("226 transfer complete")
	}
	c := dialMock(t, ms)

	entries, err := c.ExtendedList(".")
	if err != nil {
		t.Fatalf("ExtendedList: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a.txt" || !entries[1].Info.IsDirectory {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
