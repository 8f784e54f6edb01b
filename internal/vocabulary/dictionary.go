package vocabulary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"voicetype/internal/domain"
)

const defaultPassLimit = 16

// entry rewrites one recurring mistake of the recognizer.
type entry interface {
	rewrite(text string) (string, bool)
}

// Dictionary applies user substitutions to a transcript before it is
// enhanced or delivered. Two line formats are accepted:
//
//	spoken phrase => Written Form
//	s/pattern/replacement/flags
//
// Blank lines and lines starting with # are ignored.
type Dictionary struct {
	entries   []entry
	passLimit int
}

// Load reads the dictionary at path. A missing file yields an empty
// dictionary.
func Load(path string) (*Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return &Dictionary{passLimit: defaultPassLimit}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Dictionary{passLimit: defaultPassLimit}, nil
		}
		return nil, domain.NewError(domain.ErrorCodeConfig, fmt.Sprintf("failed to open vocabulary %s", path), err)
	}
	defer file.Close()

	dict, err := Parse(file)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeConfig, fmt.Sprintf("invalid vocabulary %s", path), err)
	}
	return dict, nil
}

func Parse(r io.Reader) (*Dictionary, error) {
	dict := &Dictionary{passLimit: defaultPassLimit}
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var (
			e   entry
			err error
		)
		switch {
		case isPattern(text):
			e, err = parsePattern(text)
		case strings.Contains(text, "=>"):
			e, err = parsePhrase(text)
		default:
			err = errors.New("expected \"phrase => replacement\" or s/pattern/replacement/")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dict.entries = append(dict.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return dict, nil
}

func (d *Dictionary) Len() int { return len(d.entries) }

// Rewrite applies every entry until the text stops changing or the pass
// limit is reached, so chained entries settle and cycles terminate.
func (d *Dictionary) Rewrite(text string) string {
	if d == nil || len(d.entries) == 0 {
		return text
	}
	for pass := 0; pass < d.passLimit; pass++ {
		changed := false
		for _, e := range d.entries {
			if next, ok := e.rewrite(text); ok {
				text = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return text
}

// phrase matches case-insensitively and, where the phrase starts or ends
// with an ASCII letter or digit, only on word boundaries.
type phrase struct {
	re          *regexp.Regexp
	replacement string
}

func parsePhrase(text string) (entry, error) {
	from, to, _ := strings.Cut(text, "=>")
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("phrase cannot be empty")
	}

	expr := regexp.QuoteMeta(from)
	if first, _ := utf8.DecodeRuneInString(from); isASCIIWord(first) {
		expr = `\b` + expr
	}
	if last, _ := utf8.DecodeLastRuneInString(from); isASCIIWord(last) {
		expr += `\b`
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, err
	}
	return phrase{re: re, replacement: to}, nil
}

func (p phrase) rewrite(text string) (string, bool) {
	out := p.re.ReplaceAllLiteralString(text, p.replacement)
	return out, out != text
}

// pattern is a sed-style substitution. Without the g flag only the first
// match is replaced. Matching is case-insensitive unless I is given.
type pattern struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func isPattern(text string) bool {
	if len(text) < 2 || text[0] != 's' {
		return false
	}
	delim, _ := utf8.DecodeRuneInString(text[1:])
	return !isWordRune(delim) && !unicode.IsSpace(delim)
}

func parsePattern(text string) (entry, error) {
	delim, size := utf8.DecodeRuneInString(text[1:])
	fields, rest, err := splitDelimited(text[1+size:], delim, 2)
	if err != nil {
		return nil, err
	}

	ignoreCase, global := true, false
	var flags strings.Builder
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'g':
			global = true
		case 'i':
			ignoreCase = true
		case 'I':
			ignoreCase = false
		case 'm', 's':
			flags.WriteRune(flag)
		default:
			return nil, fmt.Errorf("unsupported flag %q", flag)
		}
	}
	if ignoreCase {
		flags.WriteRune('i')
	}

	expr := fields[0]
	if flags.Len() > 0 {
		expr = "(?" + flags.String() + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return pattern{re: re, replacement: fields[1], global: global}, nil
}

func (p pattern) rewrite(text string) (string, bool) {
	var out string
	if p.global {
		out = p.re.ReplaceAllString(text, p.replacement)
	} else {
		loc := p.re.FindStringSubmatchIndex(text)
		if loc == nil {
			return text, false
		}
		expanded := p.re.ExpandString(nil, p.replacement, text, loc)
		out = text[:loc[0]] + string(expanded) + text[loc[1]:]
	}
	return out, out != text
}

// splitDelimited reads n delim-terminated fields. An escaped delimiter is
// unescaped; every other escape is kept for the regexp engine.
func splitDelimited(text string, delim rune, n int) ([]string, string, error) {
	fields := make([]string, 0, n)
	var current strings.Builder
	escaped := false
	for i, r := range text {
		switch {
		case escaped:
			if r != delim {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == delim:
			fields = append(fields, current.String())
			current.Reset()
			if len(fields) == n {
				return fields, text[i+utf8.RuneLen(r):], nil
			}
		default:
			current.WriteRune(r)
		}
	}
	return nil, "", errors.New("unterminated substitution")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isASCIIWord mirrors what \b in package regexp treats as a word character.
func isASCIIWord(r rune) bool {
	return r < utf8.RuneSelf && isWordRune(r)
}
