package writer

import (
	"context"
	"fmt"
	"strings"

	"contentgen/internal/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StaticWriter produces deterministic articles without calling a model. It is
// selected with WRITER_PROVIDER=static for local runs.
type StaticWriter struct{}

func NewStaticWriter() *StaticWriter {
	return &StaticWriter{}
}

var staticAngles = []string{
	"A Beginner's Guide to",
	"Common Mistakes With",
	"The Case For",
	"What Experts Say About",
	"A Practical Checklist for",
	"Five Questions About",
}

func (s *StaticWriter) Name() string { return ProviderStatic }

func (s *StaticWriter) Write(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, retryable(ProviderStatic, "context_done", 0, err)
	}
	tag := language.Und
	if req.Params.Locale != "" {
		if parsed, err := language.Parse(req.Params.Locale); err == nil {
			tag = parsed
		}
	}
	c := cases.Title(tag)
	keyword := c.String(coalesce(req.Params.Keyword, "content"))
	idx := req.Index
	if idx < 1 {
		idx = 1
	}
	title := fmt.Sprintf("%s %s", staticAngles[(idx-1)%len(staticAngles)], keyword)
	if idx > len(staticAngles) {
		title = fmt.Sprintf("%s (Part %d)", title, idx)
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "# %s\n\n", title)
	fmt.Fprintf(sb, "This is article %d of %d about %s.", idx, req.Total, keyword)
	if req.Params.Persona != "" {
		fmt.Fprintf(sb, " Written for %s.", req.Params.Persona)
	}
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		fmt.Fprintf(sb, "\n\n> %s", firstLine(ref))
	}
	content := sb.String()
	words := len(strings.Fields(content))
	return &Result{
		Title:      title,
		Content:    content,
		Raw:        content,
		Structured: true,
		Provider:   ProviderStatic,
		Usage:      domain.TokenUsage{CompletionTokens: words, TotalTokens: words},
	}, nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

var _ Writer = (*StaticWriter)(nil)
