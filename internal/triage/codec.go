package triage

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/utils"
)

const (
	SummaryMarker   = "Issue Summary:"
	NextStepsMarker = "Next Steps:"

	DefaultTicketTitle    = "AI Assistant Issue"
	DefaultNextSteps      = "Please review and add resolution steps."
	ResolutionPlaceholder = "To be updated once the issue is resolved."

	maxSummaryRunes = 255
	dateLayout      = "2006-01-02"
)

// Codec moves triage text between pipeline stages.
type Codec interface {
	Parse(raw string) models.TriageText
	RenderRich(a Article) (string, error)
	RenderStorage(a Article) (string, error)
}

// Article is everything needed to render a knowledge-base page.
type Article struct {
	Title     string
	Ticket    models.TicketRef
	Triage    models.TriageText
	CreatedAt time.Time
}

// MarkerCodec implements Codec over the "Issue Summary:" / "Next Steps:" line protocol.
type MarkerCodec struct{}

func (MarkerCodec) Parse(raw string) models.TriageText { return Parse(raw) }

func (MarkerCodec) RenderRich(a Article) (string, error) { return ArticleDocument(a).String() }

func (MarkerCodec) RenderStorage(a Article) (string, error) { return RenderStorage(a) }

// Parse never fails: a missing field degrades to a default.
func Parse(raw string) models.TriageText {
	out := models.TriageText{RawText: raw}

	if v, ok := findField(raw, SummaryMarker); ok && v != "" {
		out.Summary = v
		out.Structured = true
	} else {
		out.Summary = utils.Truncate(strings.TrimSpace(raw), maxSummaryRunes)
	}
	if out.Summary == "" {
		out.Summary = DefaultTicketTitle
	}

	if v, ok := findField(raw, NextStepsMarker); ok && v != "" {
		out.NextSteps = v
	} else {
		out.NextSteps = DefaultNextSteps
	}
	return out
}

func findField(raw, marker string) (string, bool) {
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	return "", false
}

// TicketTitle is the tracked-issue title for t.
func TicketTitle(t models.TriageText) string {
	if !t.Structured {
		return DefaultTicketTitle
	}
	return utils.Truncate(t.Summary, maxSummaryRunes)
}

// ArticleTitle is the page title for t, falling back to the ticket key.
func ArticleTitle(t models.TriageText, ticketKey string) string {
	if !t.Structured {
		return "KB: " + ticketKey
	}
	return utils.Truncate(t.Summary, maxSummaryRunes)
}

func NewArticle(ref models.TicketRef, t models.TriageText, now time.Time) Article {
	return Article{
		Title:     ArticleTitle(t, ref.Key),
		Ticket:    ref,
		Triage:    t,
		CreatedAt: now,
	}
}

// summaryBody is the article's summary section. Unstructured text is shown in
// full; only titles are cut.
func summaryBody(t models.TriageText) string {
	if !t.Structured {
		if raw := strings.TrimSpace(t.RawText); raw != "" {
			return raw
		}
	}
	return t.Summary
}

func footer(a Article) string {
	return fmt.Sprintf("Created on: %s | Source: %s", a.CreatedAt.UTC().Format(dateLayout), a.Ticket.Key)
}

// ArticleDocument lays the article out as: title heading, ticket link,
// summary, next steps, resolution placeholder, footer.
func ArticleDocument(a Article) Node {
	return Doc(
		Heading(1, "Knowledge Base: "+a.Title),
		Paragraph(
			Text("Related Jira Ticket: ", Strong()),
			Text(a.Ticket.Key, Link(a.Ticket.URL)),
		),
		Heading(2, "Issue Summary"),
		Paragraph(Text(summaryBody(a.Triage))),
		Heading(2, "Recommended Next Steps"),
		Paragraph(Text(a.Triage.NextSteps)),
		Heading(2, "Resolution Steps"),
		Paragraph(Text(ResolutionPlaceholder, Em())),
		Paragraph(Text(footer(a), Em())),
	)
}

// RenderStorage renders the article as storage-format XHTML. Summary and next
// steps are treated as markdown since providers often answer with it.
func RenderStorage(a Article) (string, error) {
	summary, err := markdownHTML(summaryBody(a.Triage))
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	next, err := markdownHTML(a.Triage.NextSteps)
	if err != nil {
		return "", fmt.Errorf("render next steps: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Knowledge Base: %s</h1>\n", html.EscapeString(a.Title))
	fmt.Fprintf(&b, "<p><strong>Related Jira Ticket: </strong><a href=\"%s\">%s</a></p>\n",
		html.EscapeString(a.Ticket.URL), html.EscapeString(a.Ticket.Key))
	b.WriteString("<h2>Issue Summary</h2>\n")
	b.WriteString(summary)
	b.WriteString("<h2>Recommended Next Steps</h2>\n")
	b.WriteString(next)
	b.WriteString("<h2>Resolution Steps</h2>\n")
	fmt.Fprintf(&b, "<p><em>%s</em></p>\n", ResolutionPlaceholder)
	fmt.Fprintf(&b, "<p><em>%s</em></p>\n", html.EscapeString(footer(a)))
	return b.String(), nil
}

func markdownHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
