package chat

import "strings"

// ContentKind discriminates the two render variants of an assistant message.
type ContentKind string

const (
	ContentReport ContentKind = "report"
	ContentText   ContentKind = "text"
)

// Span is a run of text with a single emphasis setting.
type Span struct {
	Text string
	Bold bool
}

// Content is the exhaustively-handled render form of a message: either a
// structured report, or paragraphs of emphasized spans.
type Content struct {
	Kind       ContentKind
	Report     *Report
	Paragraphs [][]Span
}

// Render decodes message text at the display boundary: a recognized report
// wins, everything else becomes formatted paragraphs.
func Render(text string) Content {
	if report, ok := ParseReport(text); ok {
		return Content{Kind: ContentReport, Report: report}
	}
	return Content{Kind: ContentText, Paragraphs: FormatText(text)}
}

// FormatText splits text on line breaks into independent paragraphs and marks
// **double-asterisk** segments within each line as bold.
func FormatText(text string) [][]Span {
	lines := strings.Split(text, "\n")
	paragraphs := make([][]Span, len(lines))
	for i, line := range lines {
		paragraphs[i] = spansOf(line)
	}
	return paragraphs
}

// spansOf walks one line, alternating plain runs with **bold** runs. Markers
// without a closing pair stay literal.
func spansOf(line string) []Span {
	spans := []Span{}
	rest := line
	for {
		open := strings.Index(rest, "**")
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open+2:], "**")
		if closing < 0 {
			break
		}
		if open > 0 {
			spans = append(spans, Span{Text: rest[:open]})
		}
		spans = append(spans, Span{Text: rest[open+2 : open+2+closing], Bold: true})
		rest = rest[open+2+closing+2:]
	}
	if rest != "" || len(spans) == 0 {
		spans = append(spans, Span{Text: rest})
	}
	return spans
}
