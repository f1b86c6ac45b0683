package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

const (
	ctxObjectKey = "object"
	ctxModuleKey = "module"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// permMiddleware lets through users whose roles grant all of perms.
func permMiddleware(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, perm := range perms {
				if !user.RolesHavePerm(claims.Roles, perm) {
					return errHttpForbidden
				}
			}
			return next(ctx)
		}
	}
}

// ownedCourseMiddleware sets the course `:id` as context object, if owned by the requesting user.
func ownedCourseMiddleware(svc *course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			crs, err := svc.GetOwned(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding owned course")
			}
			ctx.Set(ctxObjectKey, crs)
			return next(ctx)
		}
	}
}

// ownedModuleMiddleware sets the module `:module_id` in context, if its course is owned by the requesting user.
func ownedModuleMiddleware(svc *course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			mod, err := svc.GetOwnedModule(ctx.Request().Context(), claims.Subject, ctx.Param("module_id"))
			if err != nil {
				return errors.Wrap(err, "finding owned module")
			}
			ctx.Set(ctxModuleKey, mod)
			return next(ctx)
		}
	}
}

func ctxUserOrAdminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set(ctxObjectKey, usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}
