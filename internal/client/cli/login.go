package cli

import "context"

// Login prompts for credentials and establishes a session. Registration work
// does not require being logged in; syncing to the registry does.
func (a *App) Login(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Enter username:", a.out)
	if err != nil {
		a.printError(err)
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		a.printError(err)
		return
	}

	if err := a.auth.Login(ctx, username, password); err != nil {
		a.println("Login failed:", err)
		return
	}
	a.println("Logged in as", a.auth.UserID())

	// A fresh session may unblock queued mutations.
	if a.engine.Online() {
		go func() {
			if _, err := a.engine.Drain(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn(ctx, "drain after login failed", "error", err)
			}
		}()
	}
}
