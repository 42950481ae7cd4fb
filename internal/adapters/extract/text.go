package extract

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns data as UTF-8. Latin-1 labels and invalid UTF-8 are
// decoded as Windows-1252.
func decodeText(data []byte, charset string) string {
	data = bytes.TrimPrefix(data, utf8BOM)

	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1", "windows-1252", "cp1252":
		return decode1252(data)
	}

	if utf8.Valid(data) {
		return string(data)
	}
	return decode1252(data)
}

func decode1252(data []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(out)
}

var blankLines = regexp.MustCompile(`[ \t\r]*\n(?:[ \t\r]*\n)+`)

// collapseBlankLines keeps at most one blank line between blocks, so layout
// spacing never reads as the three-newline page marker
func collapseBlankLines(s string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

// block-level elements that end a line of text
var htmlBreaks = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "section": true, "article": true,
}

// htmlText strips markup, dropping script and style content
func htmlText(src string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	var sb strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
			return collapseBlankLines(sb.String()), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if htmlBreaks[tag] {
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if htmlBreaks[tag] {
				sb.WriteString("\n")
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}
