package configuration

import (
	"fmt"
	"strings"
)

// AddBinaryToConfigFile splices a new (or replacement) binary entry directly
// into the config file's text, preserving its existing indentation style and
// newline convention. It never parses the document into an AST and
// re-serializes it — only the "binaries" array's text is touched, exactly as
// much of it as is needed.
//
// If replaceIndex is non-nil, the element at that position (0-based, in
// array order) is overwritten in place; otherwise the entry is appended as
// the array's new last element.
func AddBinaryToConfigFile(text string, binary ConfigFileBinary, replaceIndex *int) (string, error) {
	newline := detectNewline(text)
	indent := detectIndentation(text)

	openIdx, closeIdx, err := findBinariesArray(text)
	if err != nil {
		return "", err
	}

	elements, err := splitArrayElements(text, openIdx, closeIdx)
	if err != nil {
		return "", err
	}

	elementIndent := strings.Repeat(indent, 2)
	propIndent := strings.Repeat(indent, 3)
	entryText := renderBinaryObject(binary, elementIndent, propIndent, newline)

	if replaceIndex != nil {
		if *replaceIndex < 0 || *replaceIndex >= len(elements) {
			return "", fmt.Errorf("replace index %d out of range (array has %d elements)", *replaceIndex, len(elements))
		}
		span := elements[*replaceIndex]
		return text[:span.start] + entryText + text[span.end:], nil
	}

	if len(elements) == 0 {
		inner := newline + elementIndent + entryText + newline + strings.Repeat(indent, 1)
		return text[:openIdx+1] + inner + text[closeIdx:], nil
	}

	last := elements[len(elements)-1]
	insertAt := last.end
	needsComma := !hasCommaBetween(text, last.end, closeIdx)
	prefix := ""
	if needsComma {
		prefix = ","
	}
	insertion := prefix + newline + elementIndent + entryText
	return text[:insertAt] + insertion + text[insertAt:], nil
}

type elementSpan struct{ start, end int }

// findBinariesArray locates the "binaries" property's array value and
// returns the index of its opening and closing bracket.
func findBinariesArray(text string) (open, close int, err error) {
	keyIdx := indexTopLevelKey(text, "binaries")
	if keyIdx < 0 {
		return 0, 0, fmt.Errorf("could not locate \"binaries\" property in config file text")
	}
	i := keyIdx + len(`"binaries"`)
	for i < len(text) && text[i] != '[' {
		if text[i] == ':' || text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r' {
			i++
			continue
		}
		return 0, 0, fmt.Errorf("\"binaries\" is not followed by an array")
	}
	if i >= len(text) {
		return 0, 0, fmt.Errorf("unterminated \"binaries\" array")
	}
	open = i
	close, err = matchingBracket(text, open)
	return open, close, err
}

func indexTopLevelKey(text, key string) int {
	needle := `"` + key + `"`
	idx := strings.Index(text, needle)
	return idx
}

// matchingBracket finds the index of the bracket/brace matching the one at
// openIdx, respecting string literals so that brackets inside string values
// are not mistaken for structural ones.
func matchingBracket(text string, openIdx int) (int, error) {
	open := text[openIdx]
	var closeChar byte
	switch open {
	case '[':
		closeChar = ']'
	case '{':
		closeChar = '}'
	}
	depth := 0
	inString := false
	escaped := false
	for i := openIdx; i < len(text); i++ {
		c := text[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated array starting at offset %d", openIdx)
}

// splitArrayElements returns the [start,end) byte span of each top-level
// element strictly between the array's brackets.
func splitArrayElements(text string, openIdx, closeIdx int) ([]elementSpan, error) {
	var spans []elementSpan
	depth := 0
	inString := false
	escaped := false
	elementStart := -1
	lastNonSpace := -1
	for i := openIdx + 1; i < closeIdx; i++ {
		c := text[i]
		if inString {
			if elementStart == -1 {
				elementStart = i
			}
			lastNonSpace = i
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			if elementStart == -1 {
				elementStart = i
			}
			lastNonSpace = i
		case '{', '[':
			depth++
			if elementStart == -1 {
				elementStart = i
			}
			lastNonSpace = i
		case '}', ']':
			depth--
			lastNonSpace = i
		case ',':
			if depth == 0 {
				if elementStart != -1 {
					spans = append(spans, elementSpan{elementStart, lastNonSpace + 1})
				}
				elementStart = -1
			}
		case ' ', '\t', '\n', '\r':
			// whitespace does not extend an element's span unless inside one
		default:
			if elementStart == -1 {
				elementStart = i
			}
			lastNonSpace = i
		}
	}
	if elementStart != -1 {
		spans = append(spans, elementSpan{elementStart, lastNonSpace + 1})
	}
	return spans, nil
}

func hasCommaBetween(text string, from, to int) bool {
	for i := from; i < to; i++ {
		switch text[i] {
		case ',':
			return true
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return false
		}
	}
	return false
}

// detectNewline reports "\r\n" if the document uses Windows line endings
// anywhere, else "\n".
func detectNewline(text string) string {
	if strings.Contains(text, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// detectIndentation inspects the whitespace immediately preceding the
// "binaries" key to infer the file's indentation unit: a run of spaces, a
// single tab, or (failing either) a default two-space unit.
func detectIndentation(text string) string {
	keyIdx := indexTopLevelKey(text, "binaries")
	if keyIdx <= 0 {
		return "  "
	}
	i := keyIdx - 1
	if text[i] == '\t' {
		return "\t"
	}
	if text[i] != ' ' {
		return "  "
	}
	count := 0
	for i >= 0 && text[i] == ' ' {
		count++
		i--
	}
	return strings.Repeat(" ", count)
}

func renderBinaryObject(binary ConfigFileBinary, elementIndent, propIndent, newline string) string {
	var b strings.Builder
	b.WriteString("{")
	b.WriteString(newline)
	fields := []struct {
		key, value string
	}{}
	fields = append(fields, struct{ key, value string }{"path", binary.RawPath})
	if binary.RawChecksum != "" {
		fields = append(fields, struct{ key, value string }{"checksum", binary.RawChecksum})
	}
	if binary.RawVersion != "" {
		fields = append(fields, struct{ key, value string }{"version", binary.RawVersion})
	}
	for i, f := range fields {
		b.WriteString(propIndent)
		b.WriteString(fmt.Sprintf("%q: %q", f.key, f.value))
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString(newline)
	}
	b.WriteString(elementIndent)
	b.WriteString("}")
	return b.String()
}
