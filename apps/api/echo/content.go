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

// contentApi lets instructors manage the contents of their courses' modules.
type contentApi struct {
	svc      *content.Service
	validate *validator.Validate
}

func registerContentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	courseSvc *course.Service,
	svc *content.Service,
	validate *validator.Validate,
) {
	api := contentApi{svc: svc, validate: validate}

	mg := g.Group("/manage", jwt)
	mg.POST("/contents/order", api.orderContents, permMiddleware(user.PermChangeCourse))
	mg.DELETE("/contents/:id", api.destroy, permMiddleware(user.PermManageContent))

	modg := mg.Group("/modules/:module_id", permMiddleware(user.PermManageContent), ownedModuleMiddleware(courseSvc))
	modg.GET("/contents", api.query)
	modg.POST("/content/:model_name", api.create)
	modg.GET("/content/:model_name/:id", api.retrieve)
	modg.PUT("/content/:model_name/:id", api.update)
}

// newForm returns the form of the `:model_name` item type.
func newForm(ctx echo.Context) (content.ItemType, content.Form, error) {
	t, ok := content.LookupItemType(ctx.Param("model_name"))
	if !ok {
		return "", nil, content.ErrUnknownItemType
	}
	return t, t.NewForm(), nil
}

// Handlers

func (api *contentApi) query(ctx echo.Context) error {
	mod, ok := ctx.Get(ctxModuleKey).(course.Module)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving module from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	mc, err := api.svc.ModuleContents(ctx.Request().Context(), claims.Subject, mod.ID)
	if err != nil {
		return errors.Wrap(err, "querying module contents")
	}
	return ctx.JSON(http.StatusOK, mc)
}

func (api *contentApi) create(ctx echo.Context) error {
	mod, ok := ctx.Get(ctxModuleKey).(course.Module)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving module from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	t, form, err := newForm(ctx)
	if err != nil {
		return err
	}
	closeUpload, err := bindForm(ctx, form)
	defer closeUpload()
	if err != nil {
		return err
	}
	if err := content.ValidateForm(api.validate, t, form, true /* creating */); err != nil {
		return err
	}

	cnt, err := api.svc.CreateItem(ctx.Request().Context(), claims.Subject, mod.ID, string(t), form)
	if err != nil {
		return errors.Wrap(err, "creating content item")
	}
	return ctx.JSON(http.StatusCreated, cnt)
}

func (api *contentApi) retrieve(ctx echo.Context) error {
	mod, ok := ctx.Get(ctxModuleKey).(course.Module)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving module from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	cnt, err := api.svc.GetItem(ctx.Request().Context(), claims.Subject, mod.ID, ctx.Param("model_name"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding content item")
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *contentApi) update(ctx echo.Context) error {
	mod, ok := ctx.Get(ctxModuleKey).(course.Module)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving module from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	t, form, err := newForm(ctx)
	if err != nil {
		return err
	}
	closeUpload, err := bindForm(ctx, form)
	defer closeUpload()
	if err != nil {
		return err
	}
	if err := content.ValidateForm(api.validate, t, form, false /* creating */); err != nil {
		return err
	}

	cnt, err := api.svc.UpdateItem(ctx.Request().Context(), claims.Subject, mod.ID, string(t), ctx.Param("id"), form)
	if err != nil {
		return errors.Wrap(err, "updating content item")
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *contentApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.svc.DeleteContent(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) orderContents(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	orders, err := bindOrders(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.ReorderContents(ctx.Request().Context(), claims.Subject, orders); err != nil {
		return errors.Wrap(err, "reordering contents")
	}
	return ctx.JSON(http.StatusOK, SavedResponse{Saved: "OK"})
}
