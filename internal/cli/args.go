package cli

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote in launch arguments")

// SplitArgs splits a launch argument string the way a POSIX shell would,
// honouring single quotes, double quotes and backslash escapes.
func SplitArgs(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			if quote == '"' && !strings.ContainsRune("\"\\$`\n", r) {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inWord = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, errUnterminatedQuote
	}

	if inWord {
		args = append(args, current.String())
	}

	return args, nil
}

// parseTapArgs treats exactly two numeric arguments as coordinates and
// anything else as a query joined with spaces.
func parseTapArgs(args []string) (query string, x, y *float64) {
	if len(args) == 2 {
		px, errX := strconv.ParseFloat(args[0], 64)
		py, errY := strconv.ParseFloat(args[1], 64)
		if errX == nil && errY == nil {
			return "", &px, &py
		}
	}

	return strings.Join(args, " "), nil, nil
}
