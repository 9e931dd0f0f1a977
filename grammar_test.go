package ftp

import (
	"testing"
	"time"
)

func TestParsePASV(t *testing.T) {
	t.Parallel()
	addr, err := parsePASV("227 Entering Passive Mode (127,0,0,1,195,80).")
	if err != nil {
		t.Fatalf("parsePASV: %v", err)
	}
	if addr != "127.0.0.1:50000" {
		t.Fatalf("got %q, want 127.0.0.1:50000", addr)
	}
}

func TestParsePASV_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := parsePASV("227 no tuple here"); err == nil {
		t.Fatal("expected ParseError")
	}
}

func TestParseEPSV(t *testing.T) {
	t.Parallel()
	port, err := parseEPSV("229 Entering Extended Passive Mode (|||12345|)")
	if err != nil {
		t.Fatalf("parseEPSV: %v", err)
	}
	if port != 12345 {
		t.Fatalf("got %d, want 12345", port)
	}
}

func TestParseEPSV_InconsistentDelimiter(t *testing.T) {
	t.Parallel()
	if _, err := parseEPSV("229 (|!|12345|)"); err == nil {
		t.Fatal("expected ParseError for inconsistent delimiter")
	}
}

func TestFormatPORT(t *testing.T) {
	t.Parallel()
	arg, err := formatPORT("127.0.0.1:50000")
	if err != nil {
		t.Fatalf("formatPORT: %v", err)
	}
	if arg != "127,0,0,1,195,80" {
		t.Fatalf("got %q", arg)
	}
}

func TestFormatEPRT(t *testing.T) {
	t.Parallel()
	arg, err := formatEPRT("127.0.0.1:50000")
	if err != nil {
		t.Fatalf("formatEPRT: %v", err)
	}
	if arg != "|1|127.0.0.1|50000|" {
		t.Fatalf("got %q", arg)
	}
}

func TestFormatEPRT_IPv6(t *testing.T) {
	t.Parallel()
	arg, err := formatEPRT("[::1]:50000")
	if err != nil {
		t.Fatalf("formatEPRT: %v", err)
	}
	if arg != "|2|::1|50000|" {
		t.Fatalf("got %q", arg)
	}
}

func TestParsePWD(t *testing.T) {
	t.Parallel()
	path, err := parsePWD(`257 "/pub/stuff" is the current directory`)
	if err != nil {
		t.Fatalf("parsePWD: %v", err)
	}
	if path != "/pub/stuff" {
		t.Fatalf("got %q", path)
	}
}

func TestParsePWD_EscapedQuote(t *testing.T) {
	t.Parallel()
	path, err := parsePWD(`257 "/pub/""weird""" is the current directory`)
	if err != nil {
		t.Fatalf("parsePWD: %v", err)
	}
	if path != `/pub/"weird"` {
		t.Fatalf("got %q", path)
	}
}

func TestParseMDTM_RoundTrip(t *testing.T) {
	t.Parallel()
	ts, err := parseMDTM("20240102030405.123")
	if err != nil {
		t.Fatalf("parseMDTM: %v", err)
	}
	want := time.Date(2024, 1, 2, 3, 4, 5, 123_000_000, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("got %v, want %v", ts, want)
	}
	if got := formatMDTM(ts); got != "20240102030405.123" {
		t.Fatalf("formatMDTM round-trip: got %q", got)
	}
}

func TestParseMDTM_NoFraction(t *testing.T) {
	t.Parallel()
	ts, err := parseMDTM("20240102030405")
	if err != nil {
		t.Fatalf("parseMDTM: %v", err)
	}
	if ts.Location() != time.UTC {
		t.Fatal("expected UTC")
	}
}
