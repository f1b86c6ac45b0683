package course

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/user"
)

// Enroll adds the student to the course students. Enrolling twice is a no-op.
func (svc *Service) Enroll(ctx context.Context, student user.User, courseID string) (Course, error) {
	if !isUUID(courseID) {
		return Course{}, ErrNotFound
	}
	crs, err := svc.repo.GetCourse(ctx, CourseFilter{ID: courseID})
	if err != nil {
		return Course{}, err
	}

	created, err := svc.repo.AddStudent(ctx, crs.ID, student.ID)
	if err != nil {
		return Course{}, errors.Wrap(err, "adding student")
	}
	if created && student.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Enrollment confirmed",
			TemplateName: "enrollment",
			TemplateData: map[string]interface{}{
				"Name":        student.ContactName(),
				"CourseID":    crs.ID,
				"CourseTitle": crs.Title,
			},
		})
	}
	return crs, nil
}

// QueryEnrolled lists the courses the student is enrolled in.
func (svc *Service) QueryEnrolled(ctx context.Context, studentID string) ([]CourseSummary, error) {
	courses, err := svc.repo.QueryCourses(ctx, CourseFilter{StudentID: studentID})
	return courses, errors.Wrap(err, "querying enrolled courses")
}

// GetEnrolled returns a course the student is enrolled in, focused on the module moduleID,
// or on the first module of the course when moduleID is empty.
func (svc *Service) GetEnrolled(ctx context.Context, studentID, courseID, moduleID string) (EnrolledCourse, error) {
	if !isUUID(courseID) || studentID == "" {
		return EnrolledCourse{}, ErrNotFound
	}
	crs, err := svc.getCourse(ctx, CourseFilter{ID: courseID, StudentID: studentID})
	if err != nil {
		return EnrolledCourse{}, err
	}

	ec := EnrolledCourse{Course: crs}
	if moduleID == "" {
		if len(crs.Modules) > 0 {
			ec.Module = &crs.Modules[0]
		}
		return ec, nil
	}
	for i := range crs.Modules {
		if crs.Modules[i].ID == moduleID {
			ec.Module = &crs.Modules[i]
			return ec, nil
		}
	}
	return EnrolledCourse{}, ErrModuleNotFound
}

// IsEnrolled reports whether the student is enrolled in the course.
func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	if !isUUID(courseID) || studentID == "" {
		return false, nil
	}
	if _, err := svc.repo.GetCourse(ctx, CourseFilter{ID: courseID, StudentID: studentID}); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding enrolled course")
	}
	return true, nil
}
