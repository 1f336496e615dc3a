package message

import (
	"strings"

	"github.com/google/uuid"
)

// Body is the content of a message. The set of implementations is closed:
// TextBody and RepostBody.
type Body interface {
	isBody()
	Type() string
}

// TextBody is a plain text message.
type TextBody struct {
	Content string
}

// RepostBody shares an existing post, optionally with a caption.
type RepostBody struct {
	PostID  uuid.UUID
	Caption *string
}

func (TextBody) isBody()   {}
func (RepostBody) isBody() {}

func (TextBody) Type() string   { return TypeText }
func (RepostBody) Type() string { return TypePost }

// Blank reports whether s has no visible characters.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Apply writes body into the message columns.
func (m *Message) Apply(body Body) {
	switch b := body.(type) {
	case TextBody:
		content := b.Content
		m.Type = TypeText
		m.Content = &content
		m.PostID = nil
	case RepostBody:
		m.Type = TypePost
		m.Content = b.Caption
		m.PostID = nil
		if b.PostID != uuid.Nil {
			postID := b.PostID
			m.PostID = &postID
		}
	}
}
