package handler

import (
	"log/slog"
	"net/http"

	"accounts/internal/delivery/http/response"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminHandler serves account activation for operators.
type AdminHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewAdminHandler is the constructor for AdminHandler, injected by Fx.
func NewAdminHandler(uc usecase.AuthUsecase, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		uc:     uc,
		logger: logger,
	}
}

// SetActive enables or disables login for the user in the path.
func (h *AdminHandler) SetActive(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrInvalidInput.WrapMessage("user id must be a UUID")
	}

	var req setActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.uc.SetActive(c.Request().Context(), &usecase.SetActiveInput{
		UserID: userID,
		Active: *req.Active,
	}); err != nil {
		return errors.WithStack(err)
	}

	h.logger.Info("Admin changed user activation",
		slog.String("userID", userID.String()),
		slog.Bool("active", *req.Active),
	)

	return response.Success(c, http.StatusOK, map[string]any{"id": userID, "isActive": *req.Active}, "User activation updated")
}
