package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

// catalogApi exposes subjects and courses to everyone.
type catalogApi struct {
	courseSvc  *course.Service
	contentSvc *content.Service
	userSvc    user.Service
	validate   *validator.Validate
}

func registerCatalogAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	courseSvc *course.Service,
	contentSvc *content.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := catalogApi{
		courseSvc:  courseSvc,
		contentSvc: contentSvc,
		userSvc:    userSvc,
		validate:   validate,
	}

	g.GET("/subjects", api.querySubjects)
	g.GET("/subjects/:id", api.retrieveSubject)
	g.POST("/subjects", api.createSubject, jwt, adminMiddleware())

	g.GET("/courses", api.queryCourses)
	g.GET("/courses/:id", api.retrieveCourse)
	g.POST("/courses/:id/enroll", api.enroll, jwt)
	g.GET("/courses/:id/contents", api.courseContents, jwt)
}

// Handlers

func (api *catalogApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.courseSvc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []course.SubjectSummary{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *catalogApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.courseSvc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *catalogApi) createSubject(ctx echo.Context) error {
	var data course.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.courseSvc); err != nil {
		return err
	}
	sub, err := api.courseSvc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// queryCourses lists all courses, or those of the subject whose slug is given in `?subject=`.
func (api *catalogApi) queryCourses(ctx echo.Context) error {
	courses, err := api.courseSvc.QueryCourses(ctx.Request().Context(), ctx.QueryParam("subject"))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.CourseSummary{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// retrieveCourse finds the course by ID, or by slug.
func (api *catalogApi) retrieveCourse(ctx echo.Context) error {
	var crs course.Course
	var err error
	if id := ctx.Param("id"); isUUID(id) {
		crs, err = api.courseSvc.GetCourse(ctx.Request().Context(), id)
	} else {
		crs, err = api.courseSvc.GetCourseBySlug(ctx.Request().Context(), id)
	}
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *catalogApi) enroll(ctx echo.Context) error {
	return enrollContextUser(ctx, api.userSvc, api.courseSvc, ctx.Param("id"))
}

func (api *catalogApi) courseContents(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	cc, err := api.contentSvc.EnrolledCourseContents(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding enrolled course contents")
	}
	return ctx.JSON(http.StatusOK, cc)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
