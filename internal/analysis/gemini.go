package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// documentScanPrompt is the fixed instruction sent with every analysis
// request, alongside the page images and the response schema.
const documentScanPrompt = `You are analyzing a terms-and-conditions or legal agreement document. The attached images are pages of one document, in order. Carefully read every page and produce:

1. **full_text**: The complete text of the document, transcribed exactly as written. Preserve paragraph breaks. Do not summarize or omit anything here.

2. **summary_en**: A plain-language summary in English (5-8 sentences) that an ordinary person can understand. Focus on what the user is agreeing to, what it costs them, and what rights they give up.

3. **summary_bn**: The same summary written in Bangla (Bengali), not a word-for-word translation but equally complete.

4. **key_clauses**: The most important or risky clauses, at most 5. For each give the clause name, a short English explanation of what it means for the user, and the same explanation in Bangla.

Important:
- Transcribe text faithfully, including headings and numbered sections
- If the pages are unreadable or are not a document, still return the JSON shape with your best effort
- Return ONLY JSON matching the requested schema, with no surrounding text`

const chatSystemPrompt = `You are a helpful assistant answering questions about a terms-and-conditions document. Answer strictly and only from the document text below. Keep answers short and plain. If the answer is not present in the document, reply exactly: "%s"

DOCUMENT:
%s`

// RefusalPhrase is the fixed reply the chat gives when a question cannot
// be answered from the grounding document.
const RefusalPhrase = "I can't find that in this document."

// ChatFailureMessage is shown to the user in place of an answer when a
// chat exchange fails. The underlying error is logged, never displayed.
const ChatFailureMessage = "Sorry, something went wrong while answering. Please ask again."

// Gemini implements the Analyzer interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	chatModel string
}

// NewGemini creates a new Gemini Analyzer instance
func NewGemini(apiKey, modelName, chatModelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if chatModelName == "" {
		chatModelName = modelName
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   summarySchema(),
	}

	return &Gemini{
		client:    client,
		model:     model,
		chatModel: chatModelName,
	}, nil
}

// summarySchema is the strict output shape requested from the model.
func summarySchema() *genai.Schema {
	clauseSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"clause":         {Type: genai.TypeString, Description: "Short name of the clause"},
			"explanation_en": {Type: genai.TypeString, Description: "Plain English explanation"},
			"explanation_bn": {Type: genai.TypeString, Description: "Same explanation in Bangla"},
		},
		Required: []string{"clause", "explanation_en", "explanation_bn"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"full_text":  {Type: genai.TypeString, Description: "Complete transcribed document text"},
			"summary_en": {Type: genai.TypeString, Description: "Plain-language English summary"},
			"summary_bn": {Type: genai.TypeString, Description: "Plain-language Bangla summary"},
			"key_clauses": {
				Type:        genai.TypeArray,
				Items:       clauseSchema,
				Description: "Up to 5 of the most important or risky clauses",
			},
		},
		Required: []string{"full_text", "summary_en", "summary_bn", "key_clauses"},
	}
}

// AnalyzeDocument sends all document pages plus the instruction prompt in
// a single multimodal request and parses the JSON result. Each call is
// independent; nothing is cached or retried.
func (g *Gemini) AnalyzeDocument(ctx context.Context, pages []Page) (*DocumentSummary, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("at least one page is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	// genai.ImageData expects the bare format suffix ("png"), not a MIME
	// type. normalizePage converts everything to PNG first.
	var parts []genai.Part
	for i, page := range pages {
		images, err := normalizePage(page)
		if err != nil {
			return nil, fmt.Errorf("preparing page %d: %w", i+1, err)
		}
		for _, img := range images {
			parts = append(parts, genai.ImageData("png", img))
		}
	}
	parts = append(parts, genai.Text(documentScanPrompt))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	summary, err := parseSummaryJSON(responseText.String())
	if err != nil {
		// Keep the raw payload in the logs only; callers show a
		// generic retry message.
		slog.Warn("Malformed summary response", "raw", truncateForLog(responseText.String()), "error", err)
		return nil, fmt.Errorf("parsing document summary: %w", err)
	}

	return summary, nil
}

// NewChat opens a streaming conversation grounded in the given document
// text via a system instruction. The session history starts empty.
func (g *Gemini) NewChat(groundingText string) (Chat, error) {
	if strings.TrimSpace(groundingText) == "" {
		return nil, fmt.Errorf("grounding text is required")
	}

	model := g.client.GenerativeModel(g.chatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(fmt.Sprintf(chatSystemPrompt, RefusalPhrase, groundingText)),
		},
	}

	return &geminiChat{session: model.StartChat()}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func truncateForLog(s string) string {
	const limit = 2048
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
