package models

import (
	"errors"
	"time"
)

type PostStatus string

const (
	// StatusAny means "no filter" when used in a PostQuery.
	StatusAny       PostStatus = ""
	StatusPublished PostStatus = "published"
	StatusDraft     PostStatus = "draft"
)

var ErrUnknownStatus = errors.New("status must be published or draft")

// ParseStatus accepts "", "published" and "draft".
func ParseStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case StatusAny, StatusPublished, StatusDraft:
		return PostStatus(s), nil
	default:
		return StatusAny, ErrUnknownStatus
	}
}

// Label is the human-readable badge for a post status.
func (s PostStatus) Label() string {
	if s == StatusPublished {
		return "● Published"
	}
	return "● Draft"
}

type Post struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Status    PostStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	Status PostStatus `json:"status"`
}

// PostQuery selects one page of the posts list.
type PostQuery struct {
	Page   int
	Search string
	Status PostStatus
}

// PostPage is one page of the posts list as returned by the API.
type PostPage struct {
	Items    []Post `json:"data"`
	LastPage int    `json:"last_page"`
	Total    int    `json:"total"`
}
