package extract

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	api.DisableConfigDir()
}

// pdfText reads up to maxPages content streams and joins their text with form feeds
func pdfText(data []byte, maxPages int) (string, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), nil)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return "", fmt.Errorf("counting pdf pages: %w", err)
	}

	pages := ctx.PageCount
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	texts := make([]string, 0, pages)
	for nr := 1; nr <= pages; nr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, nr)
		if err != nil {
			return "", fmt.Errorf("extracting page %d: %w", nr, err)
		}
		if r == nil {
			texts = append(texts, "")
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", nr, err)
		}
		texts = append(texts, contentStreamText(content, pageFonts(ctx, nr)))
	}

	return strings.Join(texts, "\f"), nil
}

// pageFonts builds a decoder for every font in the page resources. Fonts
// carrying a ToUnicode CMap are decoded through it; Type0 fonts use two-byte
// codes.
func pageFonts(ctx *model.Context, nr int) map[string]*fontDecoder {
	_, _, attrs, err := ctx.PageDict(nr, false)
	if err != nil || attrs == nil || attrs.Resources == nil {
		return nil
	}
	obj, found := attrs.Resources.Find("Font")
	if !found {
		return nil
	}
	fontDict, err := ctx.DereferenceDict(obj)
	if err != nil || fontDict == nil {
		return nil
	}

	fonts := make(map[string]*fontDecoder, len(fontDict))
	for name, o := range fontDict {
		d, err := ctx.DereferenceDict(o)
		if err != nil || d == nil {
			continue
		}
		codeLen := 1
		if st := d.Subtype(); st != nil && *st == "Type0" {
			codeLen = 2
		}
		dec := newFontDecoder(codeLen)
		if o, ok := d.Find("ToUnicode"); ok {
			sd, _, err := ctx.DereferenceStreamDict(o)
			if err == nil && sd != nil && sd.Decode() == nil {
				dec.parseToUnicode(sd.Content)
			}
		}
		fonts[name] = dec
	}
	return fonts
}

// tjSpacing is the TJ adjustment (thousandths of an em) treated as a word gap
const tjSpacing = -200

// contentStreamText pulls the strings shown by text operators out of a
// decoded content stream, decoding each through the font selected by Tf
func contentStreamText(content []byte, fonts map[string]*fontDecoder) string {
	var (
		sb       strings.Builder
		pending  []string
		inArray  bool
		current  *fontDecoder
		lastName string
	)

	flush := func() {
		for _, s := range pending {
			sb.WriteString(s)
		}
		pending = pending[:0]
	}
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n")
		}
	}

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case c == '(':
			raw, n := readLiteral(content[i:])
			pending = append(pending, current.decode(raw))
			i += n
		case c == '<' && i+1 < len(content) && content[i+1] != '<':
			end := bytes.IndexByte(content[i:], '>')
			if end < 0 {
				return strings.TrimSpace(sb.String())
			}
			pending = append(pending, current.decode(hexBytes(content[i+1:i+end])))
			i += end + 1
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case c == '-' || c == '.' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(content) && (content[j] == '.' || (content[j] >= '0' && content[j] <= '9')) {
				j++
			}
			if inArray {
				if v, err := strconv.ParseFloat(string(content[i:j]), 64); err == nil && v <= tjSpacing {
					pending = append(pending, " ")
				}
			}
			i = j
		case isDelimiter(c):
			i++
		default:
			j := i
			for j < len(content) && !isDelimiter(content[j]) && content[j] != '(' && content[j] != '[' && content[j] != '<' {
				j++
			}
			if j == i {
				j++
			}
			token := string(content[i:j])
			if i > 0 && content[i-1] == '/' {
				lastName = token
			}
			switch token {
			case "Tf":
				current = fonts[lastName]
			case "Tj", "TJ":
				flush()
			case "'", "\"":
				newline()
				flush()
			case "T*", "Td", "TD", "ET":
				newline()
				pending = pending[:0]
			default:
				if !inArray {
					pending = pending[:0]
				}
			}
			i = j
		}
	}

	return strings.TrimSpace(sb.String())
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, ']', ')', '>', '/', '{', '}':
		return true
	}
	return false
}

// readLiteral unescapes a PDF literal string starting at b[0] == '(' and
// returns its bytes with the number of bytes consumed
func readLiteral(b []byte) ([]byte, int) {
	var sb strings.Builder
	depth := 0
	i := 0

	for i < len(b) {
		c := b[i]
		switch c {
		case '(':
			if depth > 0 {
				sb.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return []byte(sb.String()), i
			}
			sb.WriteByte(c)
		case '\\':
			if i+1 >= len(b) {
				i++
				continue
			}
			i++
			e := b[i]
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
			default:
				if e >= '0' && e <= '7' {
					j := i
					for j < len(b) && j < i+3 && b[j] >= '0' && b[j] <= '7' {
						j++
					}
					v, _ := strconv.ParseUint(string(b[i:j]), 8, 8)
					sb.WriteByte(byte(v))
					i = j
					continue
				}
				sb.WriteByte(e)
			}
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}

	return []byte(sb.String()), i
}
