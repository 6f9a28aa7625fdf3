package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"title":  true,
}

var lineBreakElements = map[string]bool{
	"br": true, "p": true, "div": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripTags returns the text content of s with markup removed. Text that
// contains no '<' is returned trimmed but otherwise untouched.
func StripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}

	var sb strings.Builder
	skipDepth := 0

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF; a strings.Reader never fails otherwise
			break
		}

		switch tt {
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedElements[tag] && tt == html.StartTagToken {
				skipDepth++
			}
			if lineBreakElements[tag] {
				sb.WriteByte('\n')
			}
			if tag == "td" || tag == "th" {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedElements[tag] && skipDepth > 0 {
				skipDepth--
			}
			if lineBreakElements[tag] {
				sb.WriteByte('\n')
			}
		}
	}

	return tidyLines(sb.String())
}

// tidyLines trims every line and drops the empty ones.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}

var completeTagRegexp = regexp.MustCompile(`<[^>]+>`)

// stripPlainTags drops complete <...> spans from a text/plain body. A lone
// '<' and blank lines are kept.
func stripPlainTags(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(completeTagRegexp.ReplaceAllString(s, ""))
}
