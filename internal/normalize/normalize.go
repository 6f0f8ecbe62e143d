// Package normalize turns extracted page nodes into clean plain text.
//
// Text is handled as blank-line-delimited blocks. Each block is checked
// against the boilerplate markers of the archive (ISBN, library
// classification codes, copyright lines, "return to" navigation) and against
// the short-metadata rule. Short lines without bibliographic markers are kept
// since on poetry pages they are usually verse.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/litarchive/internal/dom"
)

// Separator joins paragraphs in normalized output.
const Separator = "\n\n"

// shortLimit is the rune length under which a block is inspected for
// bibliographic markers.
const shortLimit = 50

var (
	boilerplateRe = regexp.MustCompile(`(?i)ISBN|ББК|УДК|copyright|©|вернуться на|вернуться к|^return to\b`)
	shortMetaRe   = regexp.MustCompile(`(?i)[0-9]{4}|Издат\.\s?центр|Изд\.|вып\.|стр\.|\bvol\.|\bpp\.`)
	blankLinesRe  = regexp.MustCompile(`\n{2,}`)
)

// IsBoilerplate reports whether a trimmed block is bibliographic or
// navigation noise.
func IsBoilerplate(s string) bool {
	return boilerplateRe.MatchString(s)
}

// IsShortMetadata reports whether a trimmed block is a short imprint-like
// line such as "СПб.: Издат, 2000".
func IsShortMetadata(s string) bool {
	return utf8.RuneCountInString(s) < shortLimit && shortMetaRe.MatchString(s)
}

// Keep reports whether a trimmed, non-empty block survives filtering.
func Keep(s string) bool {
	return s != "" && !IsBoilerplate(s) && !IsShortMetadata(s)
}

// Nodes normalizes the rendered text of nodes. Nil nodes count as empty.
func Nodes(nodes []dom.Node) string {
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, nodeText(n))
	}
	return Texts(texts)
}

// Texts normalizes already flattened texts.
func Texts(texts []string) string {
	var kept []string
	for _, t := range texts {
		for _, block := range blocks(t) {
			if Keep(block) {
				kept = append(kept, block)
			}
		}
	}
	return strings.Join(kept, Separator)
}

// Split breaks normalized text back into paragraphs.
func Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, Separator)
}

// Raw joins node texts with single newlines without filtering. Used when
// filtering leaves nothing but the caller must not drop the item.
func Raw(nodes []dom.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, tidy(nodeText(n)))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func nodeText(n dom.Node) (text string) {
	if n == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	return n.Text()
}

// tidy trims every line and collapses blank line runs to one blank line.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(s, Separator))
}

func blocks(s string) []string {
	s = tidy(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, Separator)
}
