package reader

import (
	"bytes"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/bom-cli/internal/bomerr"
)

// ReadText reads a text file and decodes it to UTF-8. An empty encoding
// sniffs the charset from the content.
func ReadText(path, enc string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrap(err, "text: read file")
	}
	return DecodeText(data, enc)
}

// DecodeText converts raw bytes to a UTF-8 string. Valid UTF-8 is returned
// as is (minus a byte-order mark); anything else is sniffed with the HTML5
// encoding algorithm, which falls back to windows-1252 for Latin-1 style
// exports. Text that still contains NUL bytes after decoding is rejected.
func DecodeText(data []byte, enc string) (string, error) {
	var e encoding.Encoding
	switch {
	case enc != "":
		var err error
		e, err = htmlindex.Get(enc)
		if err != nil {
			return "", bomerr.Wrap(err, bomerr.EncodingDetection, "unknown encoding "+enc)
		}
	case utf8.Valid(data) && !hasUTF16BOM(data):
		s := strings.TrimPrefix(string(data), "\uFEFF")
		if strings.ContainsRune(s, 0) {
			return "", bomerr.New(bomerr.EncodingDetection, "content contains NUL bytes")
		}
		return s, nil
	default:
		e, _, _ = charset.DetermineEncoding(data, "text/plain")
	}

	out, err := e.NewDecoder().Bytes(data)
	if err != nil {
		return "", bomerr.Wrap(err, bomerr.EncodingDetection, "decode text")
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return "", bomerr.New(bomerr.EncodingDetection, "decoded text contains NUL bytes")
	}
	return strings.TrimPrefix(string(out), "\uFEFF"), nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// Lines splits text into lines, accepting \n, \r\n and bare \r endings.
// Trailing whitespace is removed from each line.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, strings.TrimRightFunc(l, unicode.IsSpace))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// Fields splits a line on runs of whitespace. Double-quoted sections are
// kept together with the quotes removed.
func Fields(line string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	flush := func() {
		if started {
			out = append(out, cur.String())
		}
		cur.Reset()
		started = false
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return out
}

// SplitDelimited splits a line on sep and trims every field.
func SplitDelimited(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
