package types

import "strings"

// ContentType represents the type of content in tool results.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeResource ContentType = "resource"
)

// Content is one segment of a tool result.
type Content struct {
	Type ContentType `json:"type"`

	Text string `json:"text,omitempty"`

	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	Resource *ResourceContents `json:"resource,omitempty"`
}

// JoinText concatenates the text segments of contents with newlines, in order.
// Non-text segments are skipped.
func JoinText(contents []Content) string {
	texts := make([]string, 0, len(contents))
	for _, c := range contents {
		if c.Type == ContentTypeText {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n")
}
