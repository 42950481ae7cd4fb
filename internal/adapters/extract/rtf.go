package extract

import (
	"strconv"
	"strings"
)

// destinations whose content is not document text
var rtfSkipped = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "footer": true, "listtable": true,
	"listoverridetable": true, "rsidtbl": true, "generator": true,
	"themedata": true, "datastore": true, "latentstyles": true,
}

// rtfText strips control words and groups, keeping body text
func rtfText(data []byte) string {
	var (
		sb      strings.Builder
		raw     []byte
		skipAt  = -1
		depth   int
		ucSkip  = 1
		pending int
	)

	flushRaw := func() {
		if len(raw) > 0 {
			sb.WriteString(decode1252(raw))
			raw = raw[:0]
		}
	}
	emit := func(b byte) {
		if skipAt >= 0 {
			return
		}
		if pending > 0 {
			pending--
			return
		}
		raw = append(raw, b)
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch c {
		case '{':
			depth++
			i++
		case '}':
			if skipAt == depth {
				skipAt = -1
			}
			depth--
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(data) {
				break
			}
			c = data[i]
			switch {
			case c == '\'':
				if i+2 < len(data) {
					if v, err := strconv.ParseUint(string(data[i+1:i+3]), 16, 8); err == nil {
						emit(byte(v))
					}
				}
				i += 3
			case c == '*':
				if skipAt < 0 {
					skipAt = depth
				}
				i++
			case c == '\\' || c == '{' || c == '}':
				emit(c)
				i++
			case c == '~':
				emit(' ')
				i++
			case isASCIILetter(c):
				j := i
				for j < len(data) && isASCIILetter(data[j]) {
					j++
				}
				word := string(data[i:j])
				k := j
				if k < len(data) && (data[k] == '-' || (data[k] >= '0' && data[k] <= '9')) {
					k++
					for k < len(data) && data[k] >= '0' && data[k] <= '9' {
						k++
					}
				}
				param, hasParam := 0, k > j
				if hasParam {
					param, _ = strconv.Atoi(string(data[j:k]))
				}
				if k < len(data) && data[k] == ' ' {
					k++
				}
				i = k

				if rtfSkipped[word] && skipAt < 0 {
					skipAt = depth
					continue
				}
				if skipAt >= 0 {
					continue
				}
				switch word {
				case "par", "line", "row", "sect", "page":
					emit('\n')
				case "tab", "cell":
					emit('\t')
				case "uc":
					if hasParam {
						ucSkip = param
					}
				case "u":
					if param < 0 {
						param += 65536
					}
					flushRaw()
					sb.WriteRune(rune(param))
					pending = ucSkip
				}
			default:
				i++
			}
		default:
			emit(c)
			i++
		}
	}

	flushRaw()
	return collapseBlankLines(sb.String())
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
