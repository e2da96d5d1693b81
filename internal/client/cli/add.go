package cli

import (
	"context"
	"errors"

	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/client/services"
)

func (a *App) promptForm(initial models.RegistrationForm) (models.RegistrationForm, error) {
	fields := []struct {
		prompt string
		dest   *string
	}{
		{"Child's full name", &initial.ChildName},
		{"Sex (male/female)", &initial.Sex},
		{"Date of birth (YYYY-MM-DD)", &initial.DateOfBirth},
		{"Place of birth", &initial.PlaceOfBirth},
		{"Mother's full name", &initial.MotherName},
		{"Father's full name (optional)", &initial.FatherName},
	}

	for _, f := range fields {
		prompt := f.prompt
		if *f.dest != "" {
			prompt += " [" + *f.dest + "]"
		}
		value, err := GetSimpleText(a.reader, prompt+":", a.out)
		if err != nil {
			return initial, err
		}
		if value != "" {
			*f.dest = value
		}
	}

	statusPrompt := "Status (draft/submitted)"
	if initial.Status != "" {
		statusPrompt += " [" + string(initial.Status) + "]"
	}
	value, err := GetSimpleText(a.reader, statusPrompt+":", a.out)
	if err != nil {
		return initial, err
	}
	if value != "" {
		initial.Status = models.RegistrationStatus(value)
	}
	return initial, nil
}

func (a *App) add(ctx context.Context) {
	form, err := a.promptForm(models.RegistrationForm{})
	if err != nil {
		a.printError(err)
		return
	}

	reg, err := a.regs.Create(ctx, form)
	if err != nil {
		var verr *services.ValidationFailedError
		if errors.As(err, &verr) {
			a.println("Registration rejected:")
			for _, ve := range verr.Errors {
				a.println("  -", ve.Error())
			}
			return
		}
		a.printError(err)
		return
	}

	a.printf("Registered %s (%s, sync: %s)\n", reg.ChildName, reg.RegistrationNumber, reg.SyncStatus)
}

func (a *App) edit(ctx context.Context, id string) {
	existing, err := a.regs.Get(ctx, id)
	if err != nil {
		a.printError(err)
		return
	}

	form, err := a.promptForm(models.RegistrationForm{
		ChildName:    existing.ChildName,
		Sex:          existing.Sex,
		DateOfBirth:  existing.DateOfBirth,
		PlaceOfBirth: existing.PlaceOfBirth,
		MotherName:   existing.MotherName,
		FatherName:   existing.FatherName,
		Status:       existing.Status,
	})
	if err != nil {
		a.printError(err)
		return
	}

	reg, err := a.regs.Update(ctx, id, form)
	if err != nil {
		a.printError(err)
		return
	}
	a.printf("Updated %s (sync: %s)\n", reg.RegistrationNumber, reg.SyncStatus)
}
