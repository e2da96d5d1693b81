package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aowusu/birthsync/internal/common"
)

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printError(err error) {
	if errors.Is(err, common.ErrTokenExpired) {
		a.println("Error: session expired; please login again")
		return
	}
	a.println("Error:", err)
}

func (a *App) getStatus() string {
	parts := []string{}
	if a.auth.LoggedIn() {
		parts = append(parts, a.auth.UserID())
	}
	if a.engine.Online() {
		parts = append(parts, "online")
	} else {
		parts = append(parts, "offline")
	}
	if st, err := a.regs.Status(context.Background()); err == nil && st.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%d queued", st.Pending))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Root runs the interactive command loop.
func (a *App) Root(ctx context.Context) {

	a.println("Welcome to birthsync CLI (type 'help' for commands)")

	for {
		a.printf("birthsync %s> ", a.getStatus())
		line, err := a.reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				break
			}
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			a.println("Available commands: login, logout, add, list, show <id>, edit <id>,")
			a.println("  delete <id>, search, status, sync, retry, discard, exit")

		case "login":
			a.Login(ctx)
		case "logout":
			a.auth.Logout()
			a.println("Logged out")
		case "add":
			a.add(ctx)
		case "list":
			a.list(ctx)
		case "show":
			if len(args) == 0 {
				a.println("Usage: show <id>")
				continue
			}
			a.show(ctx, args[0])
		case "edit":
			if len(args) == 0 {
				a.println("Usage: edit <id>")
				continue
			}
			a.edit(ctx, args[0])
		case "delete":
			if len(args) == 0 {
				a.println("Usage: delete <id>")
				continue
			}
			a.delete(ctx, args[0])
		case "search":
			a.search(ctx)
		case "status":
			a.status(ctx)
		case "sync":
			a.sync(ctx)
		case "retry":
			a.retry(ctx)
		case "discard":
			a.discard(ctx)
		case "exit", "quit":
			a.println("Bye!")
			return
		default:
			a.println("Unknown command:", cmd)
		}

		if err != nil {
			break
		}
	}
}
