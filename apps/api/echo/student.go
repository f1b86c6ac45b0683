package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

type studentApi struct {
	courseSvc  *course.Service
	contentSvc *content.Service
	userSvc    user.Service
	validate   *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	courseSvc *course.Service,
	contentSvc *content.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := studentApi{
		courseSvc:  courseSvc,
		contentSvc: contentSvc,
		userSvc:    userSvc,
		validate:   validate,
	}

	sg := g.Group("/students")
	sg.POST("/register", api.register)

	ag := sg.Group("", jwt)
	ag.POST("/enroll", api.enroll)
	ag.GET("/courses", api.queryCourses)
	ag.GET("/courses/:id", api.retrieveCourse)
	ag.GET("/courses/:id/modules/:module_id", api.retrieveCourse)
}

// Handlers

// register creates a student account and logs it in.
func (api *studentApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Roles = nil
	if err := data.Validate(ctx.Request().Context(), api.validate, api.userSvc); err != nil {
		return err
	}

	usr, err := api.userSvc.RegisterStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	if usr, err = api.userSvc.SetLastLogin(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token})
}

func (api *studentApi) enroll(ctx echo.Context) error {
	var data course.Enroll
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enroll")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	return enrollContextUser(ctx, api.userSvc, api.courseSvc, data.CourseID)
}

func (api *studentApi) queryCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	courses, err := api.courseSvc.QueryEnrolled(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	if courses == nil {
		courses = []course.CourseSummary{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// retrieveCourse returns an enrolled course focused on `:module_id`, or on its first module.
func (api *studentApi) retrieveCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	em, err := api.contentSvc.EnrolledModuleContents(
		ctx.Request().Context(), claims.Subject, ctx.Param("id"), ctx.Param("module_id"),
	)
	if err != nil {
		return errors.Wrap(err, "finding enrolled course")
	}
	return ctx.JSON(http.StatusOK, em)
}

// enrollContextUser enrolls the requesting user in the course courseID.
func enrollContextUser(ctx echo.Context, userSvc user.Service, courseSvc *course.Service, courseID string) error {
	usr, err := getContextUser(ctx, userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := courseSvc.Enroll(ctx.Request().Context(), usr, courseID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, EnrollResponse{Enrolled: true, Course: crs})
}

type EnrollResponse struct {
	Enrolled bool          `json:"enrolled"`
	Course   course.Course `json:"course"`
}
