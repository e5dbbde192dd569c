package midifile

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Charsets lists the names accepted for text meta events.
var Charsets = []string{"utf-8", "latin1", "cp1252", "sjis"}

// lookupCharset returns the encoding called name. UTF-8 text needs no
// conversion and yields nil.
func lookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "sjis", "shift_jis", "shift-jis":
		return japanese.ShiftJIS, nil
	}
	return nil, fmt.Errorf("unknown charset %q", name)
}

func decodeText(enc encoding.Encoding, b []byte) string {
	if enc == nil {
		return string(b)
	}
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func encodeText(enc encoding.Encoding, s string) string {
	if enc == nil {
		return s
	}
	b, err := enc.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return b
}
