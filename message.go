package manifold

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Role is the message role in a chat (system, user, assistant).
type Role string

// Chat message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content is a sealed sum type for a message body: TextContent or PartsContent.
type Content interface {
	isContent()
	// Text returns the plain text of the content; non-text parts are ignored.
	Text() string
}

// TextContent is a message body given as a single plain string.
type TextContent string

func (TextContent) isContent() {}

// Text implements Content.
func (c TextContent) Text() string { return string(c) }

// PartsContent is a message body given as an ordered sequence of typed parts.
type PartsContent []ContentPart

func (PartsContent) isContent() {}

// Text concatenates the text parts in order.
func (c PartsContent) Text() string {
	var b strings.Builder
	for _, p := range c {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ContentPart is a sealed interface for message parts. Only package types implement it via isContentPart().
type ContentPart interface {
	isContentPart()
}

// TextPart holds plain text content.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ImagePart references an image either as a data URI (data:<mime>;base64,<payload>) or a remote URL.
type ImagePart struct {
	URL string
}

func (ImagePart) isContentPart() {}

// ChatMessage is a single message with a role and a text or multi-part body.
type ChatMessage struct {
	Role    Role
	Content Content
}

// Text builds a ChatMessage with plain string content.
func Text(role Role, text string) ChatMessage {
	return ChatMessage{Role: role, Content: TextContent(text)}
}

// Parts builds a ChatMessage with multi-part content.
func Parts(role Role, parts ...ContentPart) ChatMessage {
	return ChatMessage{Role: role, Content: PartsContent(parts)}
}

// UnmarshalJSON decodes the OpenAI-style chat message shape used by chat frontends:
// "content" is either a string or an array of {"type":"text"} / {"type":"image_url"} parts.
// Parts of any other type are skipped.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidMessage)
	}
	msg := gjson.ParseBytes(data)
	if !msg.IsObject() {
		return fmt.Errorf("%w: expected object", ErrInvalidMessage)
	}
	m.Role = Role(msg.Get("role").String())
	content := msg.Get("content")
	if !content.IsArray() {
		m.Content = TextContent(content.String())
		return nil
	}
	parts := make(PartsContent, 0, len(content.Array()))
	for _, item := range content.Array() {
		switch item.Get("type").String() {
		case "text":
			parts = append(parts, TextPart{Text: item.Get("text").String()})
		case "image_url":
			u := item.Get("image_url")
			if u.IsObject() {
				u = u.Get("url")
			}
			parts = append(parts, ImagePart{URL: u.String()})
		}
	}
	m.Content = parts
	return nil
}
