package models

import (
	"time"

	"github.com/google/uuid"
)

// Doc sources.
const (
	DocSourceGoogleDrive = "google-drive"
	DocSourceNotion      = "notion"
	DocSourceLocal       = "local"
	DocSourceGitHub      = "github"
)

// Doc is a stored document that can be indexed for relevance search.
type Doc struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidDocSource reports whether s is a known document source.
func ValidDocSource(s string) bool {
	switch s {
	case DocSourceGoogleDrive, DocSourceNotion, DocSourceLocal, DocSourceGitHub:
		return true
	}
	return false
}

// IndexText returns the text submitted for relevance indexing.
func (d *Doc) IndexText() string {
	if d.Content != "" {
		return d.Content
	}
	return d.Excerpt
}
