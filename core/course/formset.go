package course

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

const moduleTitleMaxLen = 200

// ModuleFormSet returns the modules of crs as forms, followed by ExtraModuleForms blank forms.
func (svc *Service) ModuleFormSet(ctx context.Context, crs Course) (ModuleFormSet, error) {
	modules, err := svc.repo.QueryModules(ctx, crs.ID)
	if err != nil {
		return ModuleFormSet{}, errors.Wrap(err, "querying modules")
	}

	forms := make([]ModuleForm, 0, len(modules)+ExtraModuleForms)
	for _, mod := range modules {
		forms = append(forms, ModuleForm{ID: mod.ID, Title: mod.Title, Description: mod.Description})
	}
	for i := 0; i < ExtraModuleForms; i++ {
		forms = append(forms, ModuleForm{})
	}
	return ModuleFormSet{Forms: forms}, nil
}

// UpdateModules applies a ModuleFormSet to the modules of crs, then returns the resulting modules.
// Every form is validated first: a single invalid form rejects the whole set. Blank forms are ignored.
func (svc *Service) UpdateModules(ctx context.Context, crs Course, fs ModuleFormSet) ([]Module, error) {
	fs.Clean()

	modules, err := svc.repo.QueryModules(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	existing := make(map[string]Module, len(modules))
	for _, mod := range modules {
		existing[mod.ID] = mod
	}

	if err := validateModuleForms(fs.Forms, existing); err != nil {
		return nil, err
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var toDelete []string
		for _, form := range fs.Forms {
			switch {
			case form.isBlank():
				continue
			case form.Delete:
				if form.ID != "" {
					toDelete = append(toDelete, form.ID)
				}
			case form.ID != "":
				mod := existing[form.ID]
				if mod.Title == form.Title && mod.Description == form.Description {
					continue
				}
				mod.Title = form.Title
				mod.Description = form.Description
				if _, err := svc.repo.UpdateModule(ctx, mod); err != nil {
					return errors.Wrap(err, "updating module")
				}
			default:
				mod := Module{
					ID:          newID(),
					CourseID:    crs.ID,
					Title:       form.Title,
					Description: form.Description,
					Order:       AutoOrder,
				}
				if _, err := svc.repo.CreateModule(ctx, mod); err != nil {
					return errors.Wrap(err, "creating module")
				}
			}
		}
		if len(toDelete) > 0 {
			if err := svc.repo.DeleteModules(ctx, toDelete...); err != nil {
				return errors.Wrap(err, "deleting modules")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.uncacheCatalog(ctx, crs.SubjectID)

	modules, err = svc.repo.QueryModules(ctx, crs.ID)
	return modules, errors.Wrap(err, "querying modules")
}

// validateModuleForms reports errors as `forms.<index>.<field>`.
func validateModuleForms(forms []ModuleForm, existing map[string]Module) error {
	var fldErrs []core.FieldError
	addErr := func(i int, field, msg string) {
		fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("forms.%d.%s", i, field), Error: msg})
	}

	seen := make(map[string]bool, len(forms))
	for i, form := range forms {
		if form.isBlank() {
			continue
		}
		if form.ID != "" {
			if _, ok := existing[form.ID]; !ok {
				addErr(i, "id", ErrModuleNotFound.Error())
				continue
			}
			if seen[form.ID] {
				addErr(i, "id", "duplicate module")
				continue
			}
			seen[form.ID] = true
		}
		if form.Delete {
			continue
		}
		if form.Title == "" {
			addErr(i, "title", "this field is required")
		} else if utf8.RuneCountInString(form.Title) > moduleTitleMaxLen {
			addErr(i, "title", fmt.Sprintf("title must be a maximum of %d characters in length", moduleTitleMaxLen))
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid modules"), fldErrs...)
	}
	return nil
}
