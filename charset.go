package ftp

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// defaultCharset is used for path and listing bytes when the server does
// not advertise UTF8 and the caller did not override it with WithCharset.
var defaultCharset encoding.Encoding = charmap.ISO8859_1

// decodePath converts wire bytes received from the server (a path argument
// in a reply, or a listing/MLSD line) into a UTF-8 Go string using the
// session's charset; if the codec reports an error, the raw bytes are
// returned unchanged. Once the server advertises UTF8, the bytes are assumed
// to already be valid UTF-8 and are passed through unchanged.
func (s *Client) decodePath(raw string) string {
	if s.features != nil && s.features.UTF8 {
		return raw
	}
	out, err := s.charsetOrDefault().NewDecoder().String(raw)
	if err != nil {
		// Never fail a listing over a charset mismatch: fall back to the
		// raw bytes, which is what a pass-through client would have shown
		// anyway.
		return raw
	}
	return out
}

// encodePath converts a caller-supplied Go string into wire bytes for a
// path argument, the inverse of decodePath.
func (s *Client) encodePath(path string) string {
	if s.features != nil && s.features.UTF8 {
		return path
	}
	out, err := s.charsetOrDefault().NewEncoder().String(path)
	if err != nil {
		return path
	}
	return out
}

func (s *Client) charsetOrDefault() encoding.Encoding {
	if s.charset != nil {
		return s.charset
	}
	return defaultCharset
}
