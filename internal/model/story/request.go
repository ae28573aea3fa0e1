package story

import "strings"

// ContentTypeText is the only block type produced by the generation endpoint.
const ContentTypeText = "text"

// StoryContext carries the narrative parameters a chapter is generated for.
// Clients send it next to the prompt so the mock composer never has to read
// them back out of prose.
type StoryContext struct {
	Character    string `json:"character,omitempty"`
	Class        string `json:"class,omitempty"`
	Personality  string `json:"personality,omitempty"`
	World        string `json:"world,omitempty"`
	Ending       string `json:"ending,omitempty"`
	Continuation bool   `json:"isContinuation,omitempty"`
	ChoiceMade   string `json:"choiceMade,omitempty"`
}

// GenerationRequest is the body of POST /api/generate-story.
type GenerationRequest struct {
	Prompt  string        `json:"prompt"`
	Context *StoryContext `json:"context,omitempty"`
}

// ContentBlock is one element of a GenerationResponse.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GenerationResponse is the canonical envelope returned to clients.
type GenerationResponse struct {
	Content []ContentBlock `json:"content"`
}

// TextResponse wraps text as a single-block response.
func TextResponse(text string) GenerationResponse {
	return GenerationResponse{Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// Text joins the text blocks with newlines; other block types contribute an
// empty line.
func (r GenerationResponse) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, block := range r.Content {
		if block.Type == ContentTypeText {
			parts = append(parts, block.Text)
		} else {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "\n")
}
