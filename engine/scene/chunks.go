package scene

import (
	"regexp"
	"strings"

	"github.com/nathoo/taleweaver/engine/rules"
	"github.com/nathoo/taleweaver/types"
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// paragraphs returns a stage's text as paragraphs. Authored Paragraphs win
// over Text.
func paragraphs(st *types.Stage) []string {
	if len(st.Paragraphs) > 0 {
		return st.Paragraphs
	}
	var out []string
	for _, p := range blankLine.Split(st.Text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chunks splits a stage's text into pages. Without ChunkByParagraphs the
// whole text is one page. There is always at least one page.
func chunks(st *types.Stage) []string {
	paras := paragraphs(st)
	if !st.ChunkByParagraphs || len(paras) <= 1 {
		if len(st.Paragraphs) == 0 {
			return []string{strings.TrimSpace(st.Text)}
		}
		return []string{strings.Join(paras, "\n\n")}
	}

	per := st.ParagraphsPerPage
	if per <= 0 {
		per = 1
	}
	var pages []string
	for i := 0; i < len(paras); i += per {
		end := min(i+per, len(paras))
		pages = append(pages, strings.Join(paras[i:end], "\n\n"))
	}
	return pages
}

// openingLine is the first non-empty line of a stage's text, case-folded.
func openingLine(st *types.Stage) string {
	for _, p := range paragraphs(st) {
		for _, line := range strings.Split(p, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return rules.Fold(line)
			}
		}
	}
	return ""
}
