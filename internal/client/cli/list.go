package cli

import (
	"context"

	"github.com/aowusu/birthsync/internal/client/models"
)

func (a *App) list(ctx context.Context) {
	regs, err := a.regs.List(ctx)
	if err != nil {
		a.printError(err)
		return
	}
	if len(regs) == 0 {
		a.println("No registrations yet")
		return
	}

	for _, reg := range regs {
		a.printf("%s  %-22s %-20s born %s  [%s]\n",
			reg.ID, reg.RegistrationNumber, reg.ChildName, reg.DateOfBirth, reg.SyncStatus)
	}
}

func (a *App) show(ctx context.Context, id string) {
	reg, err := a.regs.Get(ctx, id)
	if err != nil {
		a.printError(err)
		return
	}
	a.printRegistration(reg)
}

func (a *App) printRegistration(reg *models.Registration) {
	a.println("Registration number:", reg.RegistrationNumber)
	a.println("Child:              ", reg.ChildName)
	a.println("Sex:                ", reg.Sex)
	a.println("Date of birth:      ", reg.DateOfBirth)
	a.println("Place of birth:     ", reg.PlaceOfBirth)
	a.println("Mother:             ", reg.MotherName)
	if reg.FatherName != "" {
		a.println("Father:             ", reg.FatherName)
	}
	a.println("Status:             ", string(reg.Status))
	a.println("Sync status:        ", string(reg.SyncStatus))
}

func (a *App) delete(ctx context.Context, id string) {
	answer, err := GetSimpleText(a.reader, "Delete registration "+id+"? (yes/no)", a.out)
	if err != nil || answer != "yes" {
		a.println("Cancelled")
		return
	}
	if err := a.regs.Delete(ctx, id); err != nil {
		a.printError(err)
		return
	}
	a.println("Deleted")
}
