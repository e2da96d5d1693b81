package cli

import (
	"context"
	"fmt"

	"github.com/aowusu/birthsync/internal/client/models"
)

func (a *App) formatQueueItem(item *models.QueueItem) string {
	s := fmt.Sprintf("%s %s (%s", item.OperationType, item.DocumentID, item.Status)
	if item.RetryCount > 0 {
		s += fmt.Sprintf(", %d attempt(s)", item.RetryCount)
	}
	if item.LastError != "" {
		s += ", last error: " + item.LastError
	}
	return s + ")"
}

func (a *App) status(ctx context.Context) {
	st, err := a.regs.Status(ctx)
	if err != nil {
		a.printError(err)
		return
	}

	if st.Network.IsOnline {
		a.println("Connection: online")
	} else {
		a.println("Connection: offline")
	}
	if st.Network.IsSyncing {
		a.println("Sync:       in progress")
	} else if !st.Network.LastSyncTime.IsZero() {
		a.println("Last sync: ", st.Network.LastSyncTime.Format("2006-01-02 15:04:05"))
	}
	for _, msg := range st.Network.SyncErrors {
		a.println("Sync error:", msg)
	}

	a.printf("Queued changes: %d\n", len(st.Items))
	for _, item := range st.Items {
		line := a.formatQueueItem(item)
		a.println(" ", line)
	}
}

func (a *App) sync(ctx context.Context) {
	if !a.engine.Online() {
		a.println("Offline: changes will sync when the connection returns")
		return
	}
	results, err := a.engine.Drain(ctx)
	if err != nil {
		a.printError(err)
		return
	}
	if len(results) == 0 {
		a.println("Nothing to sync")
	}
}

func (a *App) retry(ctx context.Context) {
	n, err := a.regs.RetryFailed(ctx)
	if err != nil {
		a.printError(err)
		return
	}
	if n == 0 {
		a.println("No failed changes to retry")
	}
}

func (a *App) discard(ctx context.Context) {
	answer, err := GetSimpleText(a.reader, "Discard all queued changes? (yes/no)", a.out)
	if err != nil || answer != "yes" {
		a.println("Cancelled")
		return
	}
	n, err := a.regs.DiscardOffline(ctx)
	if err != nil {
		a.printError(err)
		return
	}
	a.printf("Discarded %d change(s)\n", n)
}
