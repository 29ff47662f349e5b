// Package cli provides the interactive postdesk command-line client.
//
// It wires configuration, local storage, the API transport, the session store
// and the posts list controller behind a line-oriented REPL. Startup restores
// a saved session while a splash line is shown; commands then cover the
// account (register, login, profile, password, delete-account, logout) and
// posts (list, search, load more, refresh, show, create, edit, delete, stats).
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
