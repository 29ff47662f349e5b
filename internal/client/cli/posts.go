package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/postdesk/internal/client/api"
	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/dmitrijs2005/postdesk/internal/client/postlist"
)

const msgLoadFailed = "Failed to load posts."

// Posts opens a fresh list for the given status filter ("", "published" or
// "draft") and prints the first page.
func (a *App) Posts(ctx context.Context, status string) error {
	st, err := models.ParseStatus(status)
	if err != nil {
		a.println("Usage: posts [published|draft]")
		return err
	}
	a.openList(ctx, st)
	return a.renderList(ctx)
}

// Search changes the search term of the open list. The fetch runs once the
// debounce window has passed.
func (a *App) Search(ctx context.Context, text string) error {
	if a.list == nil {
		a.openList(ctx, models.StatusAny)
		if _, err := a.awaitList(ctx); err != nil {
			return a.failAuthed(msgLoadFailed, err)
		}
	}
	if text != "" {
		a.println("Searching...")
	}
	a.list.SetSearch(text)
	return a.renderList(ctx)
}

// More loads the next page of the open list.
func (a *App) More(ctx context.Context) error {
	if a.list == nil {
		a.println("No list open. Type 'posts' first.")
		return nil
	}
	if !a.list.LoadMore() {
		s := a.list.Snapshot()
		if postlist.AllLoaded(s) {
			a.println(postlist.AllLoadedText(s))
		} else {
			a.println("Nothing more to load.")
		}
		return nil
	}
	return a.renderList(ctx)
}

// Refresh reloads page 1 of the open list.
func (a *App) Refresh(ctx context.Context) error {
	if a.list == nil {
		a.println("No list open. Type 'posts' first.")
		return nil
	}
	a.list.Refresh()
	return a.renderList(ctx)
}

func (a *App) renderList(ctx context.Context) error {
	s, err := a.awaitList(ctx)
	if err != nil {
		return a.failAuthed(msgLoadFailed, err)
	}

	a.println(postlist.HeaderTitle(s.Status))
	a.println(postlist.RangeText(s))
	if kind := postlist.Empty(s); kind != postlist.NotEmpty {
		title, sub := postlist.EmptyText(s)
		a.println(title)
		a.println(sub)
		return nil
	}
	for _, p := range s.Items {
		fmt.Fprintf(a.out, "#%-5d %-40s %s  %s\n", p.ID, truncate(p.Title, 40), p.Status.Label(), formatDate(p.CreatedAt))
	}
	if postlist.AllLoaded(s) {
		a.println(postlist.AllLoadedText(s))
	} else {
		a.println("Type 'more' to load more.")
	}
	return nil
}

// Show prints one post.
func (a *App) Show(ctx context.Context, arg string) error {
	id, ok := a.parseID(arg, "show")
	if !ok {
		return nil
	}
	p, err := a.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			a.println("Post not found.")
			return err
		}
		return a.failAuthed("Failed to load post.", err)
	}

	fmt.Fprintf(a.out, "%s\n%s\n", p.Title, p.Status.Label())
	fmt.Fprintf(a.out, "Created %s", formatDate(p.CreatedAt))
	if !p.UpdatedAt.Equal(p.CreatedAt) {
		fmt.Fprintf(a.out, " · Updated %s", formatDate(p.UpdatedAt))
	}
	fmt.Fprintf(a.out, "\n\n%s\n", p.Body)
	return nil
}

// Create prompts for a new post.
func (a *App) Create(ctx context.Context) error {
	in, err := a.promptPost(models.PostInput{Status: models.StatusDraft})
	if err != nil {
		return err
	}
	p, err := a.posts.Create(ctx, in)
	if err != nil {
		return a.failAuthed("Failed to create post.", err)
	}
	fmt.Fprintf(a.out, "Post #%d created.\n", p.ID)
	a.refreshQuietly()
	return nil
}

// Edit prompts for changes to an existing post; empty answers keep the
// current values.
func (a *App) Edit(ctx context.Context, arg string) error {
	id, ok := a.parseID(arg, "edit")
	if !ok {
		return nil
	}
	cur, err := a.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			a.println("Post not found.")
			return err
		}
		return a.failAuthed("Failed to load post.", err)
	}

	orig := models.PostInput{Title: cur.Title, Body: cur.Body, Status: cur.Status}
	in, err := a.promptPost(orig)
	if err != nil {
		return err
	}
	if in == orig {
		a.println("No changes to save.")
		return nil
	}

	if _, err := a.posts.Update(ctx, id, in); err != nil {
		return a.failAuthed("Failed to update post.", err)
	}
	a.println("Post updated.")
	a.refreshQuietly()
	return nil
}

// Remove deletes a post after confirmation.
func (a *App) Remove(ctx context.Context, arg string) error {
	id, ok := a.parseID(arg, "rm")
	if !ok {
		return nil
	}
	yes, err := confirm(a.reader, "Are you sure you want to delete this post?", a.out)
	if err != nil || !yes {
		return err
	}
	if err := a.posts.Delete(ctx, id); err != nil {
		return a.failAuthed("Failed to delete post.", err)
	}
	a.println("Post deleted successfully.")
	a.refreshQuietly()
	return nil
}

// Stats prints the dashboard counters and the monthly series.
func (a *App) Stats(ctx context.Context) error {
	st, err := a.posts.Stats(ctx)
	if err != nil {
		return a.failAuthed("Failed to load stats.", err)
	}
	fmt.Fprintf(a.out, "Total %d · Published %d · Drafts %d\n", st.Total, st.Published, st.Drafts)
	if len(st.Monthly) == 0 {
		a.println("No monthly data yet.")
		return nil
	}
	peak := st.PeakMonthCount()
	for _, m := range st.Monthly {
		bar := 0
		if peak > 0 {
			bar = int(m.Count) * 20 / peak
		}
		fmt.Fprintf(a.out, "%-10s %-20s %d\n", m.Month, strings.Repeat("█", bar), int(m.Count))
	}
	fmt.Fprintf(a.out, "Latest %s · Peak %d · Avg %d\n", st.LatestMonth(), peak, st.AverageMonthly())
	return nil
}

// Theme toggles the dark mode preference.
func (a *App) Theme(ctx context.Context) error {
	dark, err := a.theme.ToggleDarkMode(ctx)
	if err != nil {
		return a.fail("Could not save the theme.", err)
	}
	if dark {
		a.println("Dark mode on")
	} else {
		a.println("Dark mode off")
	}
	return nil
}

func (a *App) promptPost(def models.PostInput) (models.PostInput, error) {
	in := def
	title, err := getSimpleText(a.reader, labelWithDefault("Title", def.Title), a.out)
	if err != nil {
		return in, err
	}
	body, err := getMultiline(a.reader, labelWithDefault("Body", truncate(def.Body, 30)), a.out)
	if err != nil {
		return in, err
	}
	status, err := getSimpleText(a.reader, labelWithDefault("Status (published|draft)", string(def.Status)), a.out)
	if err != nil {
		return in, err
	}
	if title != "" {
		in.Title = title
	}
	if body != "" {
		in.Body = body
	}
	if status != "" {
		in.Status = models.PostStatus(strings.ToLower(status))
	}
	return in, nil
}

func (a *App) refreshQuietly() {
	if a.list != nil {
		a.list.Refresh()
	}
}

func (a *App) parseID(arg, cmd string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(a.out, "Usage: %s <id>\n", cmd)
		return 0, false
	}
	return id, true
}

func labelWithDefault(label, def string) string {
	if def == "" {
		return label
	}
	return fmt.Sprintf("%s [%s]", label, def)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
