package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/user"
)

const (
	msgPasswordResetSent = "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
	msgPasswordResetDone = "Password has been reset with the new password."
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"` // username or email
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// accountApi serves the sign-in and password recovery flows shared by every role.
type accountApi struct {
	users    user.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, users user.Service, validate *validator.Validate) {
	api := accountApi{users: users, validate: validate}

	ag := g.Group("/users")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.POST("/password-reset", api.requestPasswordReset)
	ag.POST("/password-reset-confirm", api.resetPassword)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.users)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.respondToken(ctx, http.StatusOK, claims)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) respondToken(ctx echo.Context, code int, claims *Claims) error {
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, LoginResponse{Token: token})
}

// requestPasswordReset answers the same whether or not the email is known.
func (api *accountApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.users.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgPasswordResetSent})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.users.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgPasswordResetDone})
}
