package writer

import (
	"fmt"
	"strings"
)

const articleSystemPrompt = "You are a professional content writer. Respond strictly with JSON matching " +
	`{"title":string,"content":string}` + ". The content is markdown."

const summarySystemPrompt = "You condense reference material into dense factual notes for a writer. " +
	"Keep names, numbers and claims. Respond with plain text only."

var lengthHints = map[string]string{
	"short":  "about 400 words",
	"medium": "about 900 words",
	"long":   "about 1600 words",
}

func buildArticlePrompt(req Request) string {
	p := req.Params
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write article %d of %d about %q.", req.Index, req.Total, p.Keyword)
	if req.Total > 1 {
		sb.WriteString(" Every article in this series must take a clearly different angle, structure and headline.")
	}
	if p.Persona != "" {
		fmt.Fprintf(sb, " Write as %s.", p.Persona)
	}
	if p.Style != "" {
		fmt.Fprintf(sb, " Tone and style: %s.", p.Style)
	}
	length := lengthHints[p.Length]
	if length == "" {
		length = lengthHints["medium"]
	}
	fmt.Fprintf(sb, " Length: %s.", length)
	if p.Locale != "" {
		fmt.Fprintf(sb, " Write in the language with locale code '%s'.", p.Locale)
	}
	if len(req.ExistingTitles) > 0 {
		sb.WriteString(" Do not reuse or closely paraphrase these existing titles: ")
		for i, title := range req.ExistingTitles {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(sb, "%q", title)
		}
		sb.WriteString(".")
	}
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		sb.WriteString("\n\nReference material (use it for facts, do not copy it verbatim):\n")
		sb.WriteString(ref)
	}
	return sb.String()
}

func buildSummaryPrompt(req SummaryRequest) string {
	sb := &strings.Builder{}
	max := req.MaxChars
	if max <= 0 {
		max = 2000
	}
	fmt.Fprintf(sb, "Summarize the following material in at most %d characters.", max)
	if req.Persona != "" {
		fmt.Fprintf(sb, " The notes will be used by %s.", req.Persona)
	}
	if req.Style != "" {
		fmt.Fprintf(sb, " Keep details relevant to a %s piece.", req.Style)
	}
	if req.Locale != "" {
		fmt.Fprintf(sb, " Write the notes in locale '%s'.", req.Locale)
	}
	sb.WriteString("\n\n")
	sb.WriteString(req.Source)
	return sb.String()
}
