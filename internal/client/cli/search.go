package cli

import (
	"context"
	"encoding/json"

	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/client/remote"
)

const searchPageSize = 20

// search queries the registry by child name. Results come from the server (or
// the short-lived local cache), not from the local store.
func (a *App) search(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Child name to search for:", a.out)
	if err != nil {
		a.printError(err)
		return
	}

	page, err := a.regs.SearchRemote(ctx, remote.Query{
		Filters:  map[string]string{"child_name": name},
		OrderBy:  "created_at",
		PageSize: searchPageSize,
	})
	if err != nil {
		a.printError(err)
		return
	}

	if len(page.Documents) == 0 {
		a.println("No matches")
		return
	}
	for _, doc := range page.Documents {
		var reg models.Registration
		if err := json.Unmarshal(doc.Data, &reg); err != nil {
			a.println(doc.ID)
			continue
		}
		a.printf("%s  %-22s %-20s born %s\n",
			doc.ID, reg.RegistrationNumber, reg.ChildName, reg.DateOfBirth)
	}
	if page.NextCursor != "" {
		a.println("More results available")
	}
}
