package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

// AutoOrder makes CreateModule place the module after the last module of its course.
const AutoOrder = -1

var (
	// errors
	ErrSubjectNotFound = core.NewNotFoundError("subject not found")
	ErrNotFound        = core.NewNotFoundError("course not found")
	ErrModuleNotFound  = core.NewNotFoundError("module not found")
	ErrSlugExists      = errors.New("this slug is already in use")
)

type (
	SubjectFilter struct {
		ID   string
		Slug string
	}

	// CourseFilter applies AND operation on its set fields.
	// StudentID only matches the courses the student is enrolled in.
	CourseFilter struct {
		ID        string
		Slug      string
		OwnerID   string
		SubjectID string
		StudentID string
	}

	// ModuleFilter applies AND operation on its set fields.
	// OwnerID matches the owner of the module's course.
	ModuleFilter struct {
		ID       string
		CourseID string
		OwnerID  string
	}

	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		// QuerySubjects returns all subjects ordered by title.
		QuerySubjects(ctx context.Context) ([]SubjectSummary, error)
		GetSubject(ctx context.Context, filter SubjectFilter) (Subject, error)
		SubjectSlugExists(ctx context.Context, slug string) (bool, error)

		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses returns the matching courses, newest first.
		QueryCourses(ctx context.Context, filter CourseFilter) ([]CourseSummary, error)
		// GetCourse returns a single course, without its modules.
		GetCourse(ctx context.Context, filter CourseFilter) (Course, error)
		CourseSlugExists(ctx context.Context, slug string, excludedIDs ...string) (bool, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		// DeleteCourse deletes the course along with its modules, contents and enrollments.
		DeleteCourse(ctx context.Context, id string) error

		// QueryModules returns the modules of a course by order.
		QueryModules(ctx context.Context, courseID string) ([]Module, error)
		GetModule(ctx context.Context, filter ModuleFilter) (Module, error)
		// CreateModule creates a module; an AutoOrder order is replaced by the next order within the course.
		CreateModule(ctx context.Context, mod Module) (Module, error)
		UpdateModule(ctx context.Context, mod Module) (Module, error)
		// DeleteModules deletes the modules along with their contents.
		DeleteModules(ctx context.Context, ids ...string) error
		// SetModuleOrders sets the order of the given modules, skipping those whose course is not owned by ownerID.
		SetModuleOrders(ctx context.Context, ownerID string, orders map[string]int) error

		// AddStudent enrolls the student, reporting whether a new enrollment was created.
		AddStudent(ctx context.Context, courseID, studentID string) (bool, error)
	}
)
