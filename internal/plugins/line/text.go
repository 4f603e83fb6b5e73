package lineplugin

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/alexisbeaulieu97/vpsctl/pkg/diff"
)

func isSupportedEncoding(name string) bool {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8", "latin-1", "latin1", "iso-8859-1", "windows-1252", "utf-16", "utf-16le", "utf-16be":
		return true
	}
	return false
}

func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(name) {
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1
	case "windows-1252":
		return charmap.Windows1252
	case "utf-16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	default:
		return nil
	}
}

func decodeContent(data []byte, name string) (string, error) {
	enc := encodingByName(name)
	if enc == nil {
		return string(data), nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func encodeContent(content, name string) ([]byte, error) {
	enc := encodingByName(name)
	if enc == nil {
		return []byte(content), nil
	}
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, enc.NewEncoder())
	if _, err := w.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitLines returns the lines of content and whether it ended with a newline.
func splitLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil, trailing
	}
	return strings.Split(content, "\n"), trailing
}

func joinLines(lines []string, trailing bool) string {
	if len(lines) == 0 {
		return ""
	}
	joined := strings.Join(lines, "\n")
	if trailing {
		joined += "\n"
	}
	return joined
}

func lineDiff(path string, before, after []string) string {
	out := diff.GenerateUnifiedDiff(
		[]byte(joinLines(before, true)),
		[]byte(joinLines(after, true)),
		path+" (current)",
		path+" (desired)",
	)
	return strings.TrimRight(out, "\n")
}
