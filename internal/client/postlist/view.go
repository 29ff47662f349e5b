package postlist

import (
	"fmt"

	"github.com/dmitrijs2005/postdesk/internal/client/models"
)

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// RangeText renders the "Showing 1–N of T posts" header line.
func RangeText(s Snapshot) string {
	if s.Total == 0 {
		return "No posts found"
	}
	to := min(s.Page*s.PageSize, s.Total)
	return fmt.Sprintf("Showing 1–%d of %d post%s", to, s.Total, plural(s.Total))
}

// AllLoaded reports whether the last page is in and the list is not empty.
func AllLoaded(s Snapshot) bool {
	return !s.LoadingMore && s.Page >= s.LastPage && len(s.Items) > 0
}

func AllLoadedText(s Snapshot) string {
	return fmt.Sprintf("All %d post%s loaded", s.Total, plural(s.Total))
}

type EmptyKind int

const (
	NotEmpty EmptyKind = iota
	EmptyNoResults
	EmptyNoPosts
)

// Empty classifies an empty, settled list: no matches for the search term
// versus no posts at all.
func Empty(s Snapshot) EmptyKind {
	if len(s.Items) > 0 || s.Loading() {
		return NotEmpty
	}
	if s.Search != "" {
		return EmptyNoResults
	}
	return EmptyNoPosts
}

// EmptyText is the title and subtitle shown for an empty list.
func EmptyText(s Snapshot) (string, string) {
	switch Empty(s) {
	case EmptyNoResults:
		return "No results found", fmt.Sprintf("No posts matched %q", s.Search)
	case EmptyNoPosts:
		return "No posts yet", "Create your first post to get started"
	default:
		return "", ""
	}
}

func HeaderTitle(status models.PostStatus) string {
	switch status {
	case models.StatusPublished:
		return "Published Posts"
	case models.StatusDraft:
		return "Draft Posts"
	default:
		return "My Posts"
	}
}
