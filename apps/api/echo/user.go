package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

const errNoPermsToSetRoles = "not enough rights to set these roles"

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

// userApi manages the user accounts: admins handle every account, the others only read and edit their own.
type userApi struct {
	users    user.Service
	courses  *course.Service
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users user.Service,
	courses *course.Service,
	validate *validator.Validate,
) {
	api := userApi{users: users, courses: courses, validate: validate}

	ug := g.Group("/users", jwt)
	ug.GET("", api.query, adminMiddleware())
	ug.DELETE("", api.destroyMultiple, adminMiddleware())
	ug.POST("/register", api.create, adminMiddleware())
	ug.GET("/roles", api.queryRoles, adminMiddleware())

	dg := ug.Group("/:id", ctxUserOrAdminMiddleware(users))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.users.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.validate, api.users); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := checkAssignableRoles(actor, data.Roles); err != nil {
		return err
	}

	usr, err := api.users.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := targetUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := targetUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// only admins touch account status, roles and login names
	if !actor.IsAdmin() && (data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "") {
		return errHttpForbidden
	}

	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, usr, api.validate, api.users); err != nil {
		return err
	}
	if err := checkAssignableRoles(actor, data.Roles); err != nil {
		return err
	}

	if usr, err = api.users.Update(rctx, usr, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := targetUser(ctx)
	if err != nil {
		return err
	}
	return api.deleteUsers(ctx, []string{usr.ID})
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	return api.deleteUsers(ctx, query.IDs)
}

// deleteUsers deletes the accounts along with the courses they own.
// Admins cannot delete their own account.
func (api *userApi) deleteUsers(ctx echo.Context, ids []string) error {
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range ids {
		if id == actor.ID {
			return errHttpForbidden
		}
	}

	rctx := ctx.Request().Context()
	if err := api.users.Delete(rctx, ids...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if err := api.courses.UncacheCatalog(rctx); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "dropping catalog cache"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// targetUser returns the user loaded by ctxUserOrAdminMiddleware.
func targetUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(ctxObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return usr, nil
}

// checkAssignableRoles rejects roles ranking above the best role of actor.
func checkAssignableRoles(actor user.User, roles []string) error {
	if user.MaxRolePriority(roles) > user.MaxRolePriority(actor.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}
	return nil
}
