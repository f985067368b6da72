package summarizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const defaultModel = "gemini-2.0-flash"

// extractionPrompt is the fixed instruction sent with the page images.
const extractionPrompt = `Extract a concise bullet-point summary from the provided images in simple text format, strictly avoid markdown format as this introduces * in between the message.
The summary should only include key information that is directly relevant and important for candidates.
DO NOT include helpline, contact information, website link etc. Focus on critical updates, dates, requirements, instructions, and other actionable points.
Ensure each point is brief and clear, targeting the needs of exam candidates. Provide enough empty space between lines.`

// Gemini summarizes PDFs through the Gemini generateContent REST API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	imageDir   string
	http       *http.Client
	rasterizer Rasterizer
	logger     *slog.Logger
}

// NewGemini creates a Gemini summarizer. Page images are written under
// imageDir and removed again after every call.
func NewGemini(apiKey, imageDir string, rasterizer Rasterizer, logger *slog.Logger) *Gemini {
	return &Gemini{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    "https://generativelanguage.googleapis.com",
		imageDir:   imageDir,
		http:       &http.Client{Timeout: 2 * time.Minute},
		rasterizer: rasterizer,
		logger:     logger,
	}
}

// Summarize rasterizes the PDF and asks Gemini for a bullet-point synopsis.
// Every failure path returns a diagnostic string instead of an error so the
// pipeline can persist and deliver it in place of a summary. Page images are
// cleaned up unconditionally.
func (g *Gemini) Summarize(ctx context.Context, pdfPath string) string {
	images, err := g.rasterizer.Convert(ctx, pdfPath, g.imageDir)
	if err != nil {
		g.logger.Error("failed to rasterize document", "pdf", pdfPath, "error", err)
		return fmt.Sprintf("Error processing PDF: %v", err)
	}
	defer cleanupImages(images, g.logger)

	summary, err := g.generate(ctx, images)
	if err != nil {
		g.logger.Error("summarization failed", "pdf", pdfPath, "error", err)
		return fmt.Sprintf("Error in Gemini summarization: %v", err)
	}
	return summary
}

// generateContent request/response shapes, trimmed to the fields used.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// generate sends the prompt plus the page images to the generateContent
// endpoint and returns the first candidate's text.
func (g *Gemini) generate(ctx context.Context, images []string) (string, error) {
	parts := []part{{Text: extractionPrompt}}
	for _, img := range images {
		data, err := os.ReadFile(img) //nolint:gosec // paths come from our own rasterizer
		if err != nil {
			return "", fmt.Errorf("reading page image %q: %w", img, err)
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Gemini: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("gemini API error: %s", genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
