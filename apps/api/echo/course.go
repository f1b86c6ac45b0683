package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

// courseApi lets instructors manage their own courses.
type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	mg := g.Group("/manage", jwt)
	mg.POST("/modules/order", api.orderModules, permMiddleware(user.PermChangeCourse))

	cg := mg.Group("/courses")
	cg.GET("", api.query, permMiddleware(user.PermViewCourse))
	cg.POST("", api.create, permMiddleware(user.PermAddCourse))

	// detail endpoints
	dg := cg.Group("/:id", permMiddleware(user.PermViewCourse), ownedCourseMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, permMiddleware(user.PermChangeCourse))
	dg.DELETE("", api.destroy, permMiddleware(user.PermDeleteCourse))
	dg.GET("/modules", api.moduleFormSet, permMiddleware(user.PermChangeCourse))
	dg.PUT("/modules", api.updateModules, permMiddleware(user.PermChangeCourse))
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	courses, err := api.svc.QueryOwned(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying owned courses")
	}
	if courses == nil {
		courses = []course.CourseSummary{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, ok := ctx.Get(ctxObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, ok := ctx.Get(ctxObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(ctx.Request().Context(), crs, api.validate, api.svc); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), crs, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ok := ctx.Get(ctxObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), crs); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) moduleFormSet(ctx echo.Context) error {
	crs, ok := ctx.Get(ctxObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	fs, err := api.svc.ModuleFormSet(ctx.Request().Context(), crs)
	if err != nil {
		return errors.Wrap(err, "building module formset")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *courseApi) updateModules(ctx echo.Context) error {
	crs, ok := ctx.Get(ctxObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	var data course.ModuleFormSet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModuleFormSet")
	}
	modules, err := api.svc.UpdateModules(ctx.Request().Context(), crs, data)
	if err != nil {
		return errors.Wrap(err, "updating modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *courseApi) orderModules(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	orders, err := bindOrders(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.ReorderModules(ctx.Request().Context(), claims.Subject, orders); err != nil {
		return errors.Wrap(err, "reordering modules")
	}
	return ctx.JSON(http.StatusOK, SavedResponse{Saved: "OK"})
}

// SavedResponse acknowledges a reorder request.
type SavedResponse struct {
	Saved string `json:"saved"`
}
