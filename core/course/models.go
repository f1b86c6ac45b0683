package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educa/core"
)

// ExtraModuleForms is the number of blank forms appended to a ModuleFormSet.
const ExtraModuleForms = 2

type Subject struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// SubjectSummary is a Subject with the number of courses filed under it.
type SubjectSummary struct {
	Subject
	TotalCourses int `json:"total_courses"`
}

type Course struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject"`
	OwnerID   string    `json:"owner"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Overview  string    `json:"overview"`
	CreatedAt time.Time `json:"created"` // UTC
	Modules   []Module  `json:"modules,omitempty"`
}

// CourseSummary is a Course with its number of modules.
type CourseSummary struct {
	Course
	TotalModules int `json:"total_modules"`
}

type Module struct {
	ID          string `json:"id"`
	CourseID    string `json:"course"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Title string `json:"title" validate:"notblank,max=200"`
	Slug  string `json:"slug" validate:"omitempty,max=200,slug"`
}

func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Slug = core.Slugify(ns.Slug, ns.Title)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkSubjectSlug(ctx, ns.Slug)
}

// NewCourse contains information needed to create a new Course.
// The owner is always the requesting user.
type NewCourse struct {
	SubjectID string `json:"subject" validate:"required,uuid"`
	Title     string `json:"title" validate:"notblank,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=200,slug"`
	Overview  string `json:"overview"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.SubjectID = core.CleanString(nc.SubjectID, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.Slugify(nc.Slug, nc.Title)
	nc.Overview = core.CleanString(nc.Overview)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.checkCourseRelations(ctx, nc.SubjectID, nc.Slug, "")
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Blank fields keep their current value.
type UpdateCourse struct {
	SubjectID string  `json:"subject" validate:"omitempty,uuid"`
	Title     string  `json:"title" validate:"max=200"`
	Slug      string  `json:"slug" validate:"omitempty,max=200,slug"`
	Overview  *string `json:"overview"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, origCourse Course, validate *validator.Validate, svc *Service) error {
	if subjectID := core.CleanString(uc.SubjectID, true /* lower */); subjectID != "" {
		uc.SubjectID = subjectID
	} else {
		uc.SubjectID = origCourse.SubjectID
	}

	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = origCourse.Title
	}

	if slug := core.CleanString(uc.Slug, true /* lower */); slug != "" {
		uc.Slug = slug
	} else {
		uc.Slug = origCourse.Slug
	}

	if uc.Overview != nil {
		overview := core.CleanString(*uc.Overview)
		uc.Overview = &overview
	} else {
		uc.Overview = &origCourse.Overview
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.checkCourseRelations(ctx, uc.SubjectID, uc.Slug, origCourse.ID)
}

// ModuleForm is one entry of a ModuleFormSet.
// Forms without ID create a module, forms with ID update it, or delete it when Delete is set.
type ModuleForm struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Delete      bool   `json:"delete"`
}

func (mf *ModuleForm) isBlank() bool {
	return mf.ID == "" && mf.Title == "" && mf.Description == ""
}

// ModuleFormSet edits all the modules of a course at once.
type ModuleFormSet struct {
	Forms []ModuleForm `json:"forms"`
}

// Clean trims all forms' values.
func (fs *ModuleFormSet) Clean() {
	for i := range fs.Forms {
		fs.Forms[i].ID = core.CleanString(fs.Forms[i].ID, true /* lower */)
		fs.Forms[i].Title = core.CleanString(fs.Forms[i].Title)
		fs.Forms[i].Description = core.CleanString(fs.Forms[i].Description)
	}
}

// Enroll is the payload of an enrollment request.
type Enroll struct {
	CourseID string `json:"course_id" validate:"required"`
}

// EnrolledCourse is the view of a course the student is enrolled in, focused on a single module.
type EnrolledCourse struct {
	Course Course  `json:"course"`
	Module *Module `json:"module"`
}
