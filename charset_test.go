package ftp

import "testing"

func TestCharset_PassThroughWhenUTF8Advertised(t *testing.T) {
	t.Parallel()
	c := &Client{features: &Features{UTF8: true}}
	raw := "r\xc3\xa9sum\xc3\xa9.txt" // "résumé.txt" already valid UTF-8
	if got := c.decodePath(raw); got != raw {
		t.Fatalf("expected pass-through, got %q", got)
	}
	if got := c.encodePath(raw); got != raw {
		t.Fatalf("expected pass-through, got %q", got)
	}
}

func TestCharset_DecodesISO8859_1ByDefault(t *testing.T) {
	t.Parallel()
	c := &Client{features: &Features{UTF8: false}}
	// 0xE9 is "é" in ISO-8859-1.
	raw := string([]byte{'r', 0xE9, 's', 'u', 'm', 0xE9, '.', 't', 'x', 't'})
	decoded := c.decodePath(raw)
	if decoded != "résumé.txt" {
		t.Fatalf("got %q", decoded)
	}

	reencoded := c.encodePath(decoded)
	if reencoded != raw {
		t.Fatalf("round trip mismatch: got %q", []byte(reencoded))
	}
}
