package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Profile(ctx context.Context) error
	Password(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Posts(ctx context.Context, status string) error
	Search(ctx context.Context, text string) error
	More(ctx context.Context) error
	Refresh(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Create(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Stats(ctx context.Context) error
	Theme(ctx context.Context) error
}

const (
	helpGuest  = "Available commands: register, login, theme, exit"
	helpMember = "Available commands: posts [published|draft], search <text>, more, refresh, show <id>, " +
		"create, edit <id>, rm <id>, stats, me, profile, password, delete-account, theme, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the postdesk CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need a session are refused
// while logged out. The loop exits on EOF, on context cancellation, or when
// the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers print their
// own user-facing messages. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "postdesk (%s) > ", statusFn())
		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpMember)
			} else {
				fmt.Fprintln(w, helpGuest)
			}
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		case "register":
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "theme":
			_ = a.Theme(ctx)
			continue
		}

		if !memberCommand(cmd) {
			fmt.Fprintln(w, "Unknown command:", cmd)
			continue
		}
		if !a.isLoggedIn() {
			fmt.Fprintln(w, "Please log in first.")
			continue
		}

		switch cmd {
		case "logout":
			_ = a.Logout(ctx)
		case "me":
			_ = a.Me(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "password":
			_ = a.Password(ctx)
		case "delete-account":
			_ = a.DeleteAccount(ctx)
		case "posts", "l", "list":
			_ = a.Posts(ctx, arg)
		case "search":
			_ = a.Search(ctx, rest)
		case "more":
			_ = a.More(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "show":
			_ = a.Show(ctx, arg)
		case "create":
			_ = a.Create(ctx)
		case "edit":
			_ = a.Edit(ctx, arg)
		case "rm":
			_ = a.Remove(ctx, arg)
		case "stats":
			_ = a.Stats(ctx)
		}
	}
}

func memberCommand(cmd string) bool {
	switch cmd {
	case "logout", "me", "profile", "password", "delete-account",
		"posts", "l", "list", "search", "more", "refresh",
		"show", "create", "edit", "rm", "stats":
		return true
	}
	return false
}
