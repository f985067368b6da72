// Package summarizer turns a downloaded notice document into a short
// plain-text synopsis. The document is rasterized to page images (an external
// collaborator concern, reached through the Rasterizer boundary) and the
// images are sent to the Gemini API with a fixed extraction instruction.
package summarizer

import "context"

// Summarizer produces a plain-text summary for a PDF document. It never
// fails upward: on any internal error the returned string is a human-readable
// error description used in place of a real summary.
type Summarizer interface {
	Summarize(ctx context.Context, pdfPath string) string
}
