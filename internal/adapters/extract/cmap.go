package extract

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf16"
)

// maxRangeSpan bounds a single bfrange so a corrupt CMap cannot blow up memory
const maxRangeSpan = 1 << 16

// fontDecoder maps the character codes of one font to text
type fontDecoder struct {
	codeLen int
	cmap    map[uint32]string
}

func newFontDecoder(codeLen int) *fontDecoder {
	if codeLen != 2 {
		codeLen = 1
	}
	return &fontDecoder{codeLen: codeLen}
}

// decode maps shown bytes to text. Fonts without a ToUnicode map fall back to
// Windows-1252, which covers the standard encodings of simple fonts.
func (d *fontDecoder) decode(b []byte) string {
	if d == nil || len(d.cmap) == 0 {
		if d != nil && d.codeLen == 2 {
			return ""
		}
		return decode1252(b)
	}

	var sb strings.Builder
	for i := 0; i+d.codeLen <= len(b); i += d.codeLen {
		var code uint32
		for k := 0; k < d.codeLen; k++ {
			code = code<<8 | uint32(b[i+k])
		}
		if s, ok := d.cmap[code]; ok {
			sb.WriteString(s)
		} else if d.codeLen == 1 {
			sb.WriteString(decode1252(b[i : i+1]))
		}
	}
	return sb.String()
}

type cmapToken struct {
	hex  []byte
	word string
}

// parseToUnicode reads the codespace, bfchar and bfrange sections of a
// ToUnicode CMap into d
func (d *fontDecoder) parseToUnicode(data []byte) {
	toks := cmapTokens(data)
	if d.cmap == nil {
		d.cmap = make(map[uint32]string)
	}

	for i := 0; i < len(toks); i++ {
		switch toks[i].word {
		case "begincodespacerange":
			if i+1 < len(toks) && toks[i+1].hex != nil {
				if n := len(toks[i+1].hex); n == 1 || n == 2 {
					d.codeLen = n
				}
			}
		case "beginbfchar":
			for i++; i+1 < len(toks) && toks[i].word != "endbfchar"; i += 2 {
				if toks[i].hex == nil || toks[i+1].hex == nil {
					continue
				}
				d.cmap[codeOf(toks[i].hex)] = utf16Text(toks[i+1].hex)
			}
		case "beginbfrange":
			i = d.parseRanges(toks, i+1)
		}
	}
}

func (d *fontDecoder) parseRanges(toks []cmapToken, i int) int {
	for i+2 < len(toks) && toks[i].word != "endbfrange" {
		lo, hi := toks[i], toks[i+1]
		if lo.hex == nil || hi.hex == nil {
			i++
			continue
		}
		start, end := codeOf(lo.hex), codeOf(hi.hex)
		if end < start || end-start > maxRangeSpan {
			end = start
		}

		if toks[i+2].word == "[" {
			j := i + 3
			for code := start; j < len(toks) && toks[j].word != "]"; j++ {
				if toks[j].hex != nil && code <= end {
					d.cmap[code] = utf16Text(toks[j].hex)
					code++
				}
			}
			i = j + 1
			continue
		}

		if dst := toks[i+2].hex; dst != nil {
			units := utf16Units(dst)
			for code := start; code <= end && len(units) > 0; code++ {
				u := append([]uint16(nil), units...)
				u[len(u)-1] += uint16(code - start)
				d.cmap[code] = string(utf16.Decode(u))
			}
		}
		i += 3
	}
	return i
}

func cmapTokens(data []byte) []cmapToken {
	var toks []cmapToken
	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0:
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			end := bytes.IndexByte(data[i:], '>')
			if end < 0 {
				return toks
			}
			toks = append(toks, cmapToken{hex: hexBytes(data[i+1 : i+end])})
			i += end + 1
		case c == '[' || c == ']':
			toks = append(toks, cmapToken{word: string(c)})
			i++
		case c == '(':
			_, n := readLiteral(data[i:])
			i += n
		default:
			j := i + 1
			for j < len(data) && !strings.ContainsRune(" \t\r\n\f<>[]()/%", rune(data[j])) {
				j++
			}
			toks = append(toks, cmapToken{word: string(data[i:j])})
			i = j
		}
	}
	return toks
}

// hexBytes decodes a hex string body, ignoring whitespace and padding an odd
// final digit with zero
func hexBytes(b []byte) []byte {
	clean := make([]byte, 0, len(b)+1)
	for _, c := range b {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			clean = append(clean, c)
		}
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out := make([]byte, len(clean)/2)
	if _, err := hex.Decode(out, clean); err != nil {
		return []byte{}
	}
	return out
}

func codeOf(b []byte) uint32 {
	var code uint32
	for _, c := range b {
		code = code<<8 | uint32(c)
	}
	return code
}

func utf16Units(b []byte) []uint16 {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return units
}

func utf16Text(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	return string(utf16.Decode(utf16Units(b)))
}
