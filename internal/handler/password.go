package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type resetPasswordReq struct {
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

// PasswordRecovery mails a reset link to the address in the path.
func (h *AuthHandler) PasswordRecovery(c echo.Context) error {
	if err := h.Auth.RequestPasswordRecovery(c.Request().Context(), c.Param("email")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "The password reset link has been sent, please check your email.",
	})
}

// ResetPassword sets a new password from a reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword, req.NewPasswordConfirm); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "The password has been updated successfully"})
}
