package payment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	paymentsvc "github.com/NataliiaPodoroha/library-service/service/payment"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *slog.Logger
}

func caller(c echo.Context) (int64, bool) {
	uid, _ := c.Get("user_id").(int64)
	staff, _ := c.Get("is_staff").(bool)
	return uid, staff
}

// GET /v1/payments
func (h *Controller) List(c echo.Context) error {
	uid, staff := caller(c)
	rows, err := h.Svc.List(c.Request().Context(), uid, staff)
	if err != nil {
		h.Log.Error("payment list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/payments/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, staff := caller(c)

	p, err := h.Svc.Detail(c.Request().Context(), uid, staff, id)
	if err != nil {
		if errors.Is(err, paymentsvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		}
		h.Log.Error("payment detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/payments/:id/success
//
// The gateway sends the payer here after checkout; the handler pulls
// the session state and confirms the payment.
func (h *Controller) Success(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, staff := caller(c)

	p, err := h.Svc.ConfirmSuccess(c.Request().Context(), uid, staff, id)
	if err != nil {
		if errors.Is(err, paymentsvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		}
		h.Log.Error("payment success", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/payments/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, staff := caller(c)

	if _, err := h.Svc.Detail(c.Request().Context(), uid, staff, id); err != nil {
		if errors.Is(err, paymentsvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		}
		h.Log.Error("payment cancel", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Payment can be completed later. The checkout session stays available for 24 hours.",
	})
}
