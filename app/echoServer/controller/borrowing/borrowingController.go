package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	bs "github.com/NataliiaPodoroha/library-service/service/borrowing"
)

type Controller struct {
	Svc bs.Service
	V   *validator.Validate
	Log *slog.Logger
}

func caller(c echo.Context) (int64, bool) {
	uid, _ := c.Get("user_id").(int64)
	staff, _ := c.Get("is_staff").(bool)
	return uid, staff
}

// POST /v1/borrowings
// @Summary  Borrow a book
// @Success  201 {object} map[string]any
// @Failure  400,401,404 {object} map[string]any
func (h *Controller) Create(c echo.Context) error {
	var req CreateBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	expected, err := time.Parse("2006-01-02", req.ExpectedReturnDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid expected_return_date"})
	}
	uid, _ := caller(c)

	out, err := h.Svc.Create(c.Request().Context(), uid, req.BookID, expected)
	if err != nil {
		switch bs.Code(err) {
		case bs.ErrOutOfStock:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "the book is out of stock"})
		case bs.ErrBadDate:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "expected_return_date must not be before today"})
		case bs.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		default:
			h.Log.Error("borrowing create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"borrowing_id": out.BorrowingID,
		"payment_id":   out.PaymentID,
		"session_url":  out.SessionURL,
		"money_to_pay": out.MoneyToPay,
	})
}

// POST /v1/borrowings/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, staff := caller(c)

	out, err := h.Svc.Return(c.Request().Context(), uid, staff, id)
	if err != nil {
		switch bs.Code(err) {
		case bs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case bs.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case bs.ErrAlreadyReturned:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "borrowing already returned"})
		default:
			h.Log.Error("borrowing return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	if out.RedirectURL != "" {
		// Unsettled payment: the caller must pay first.
		return c.Redirect(http.StatusFound, out.RedirectURL)
	}

	resp := echo.Map{"message": "Borrowing returned successfully."}
	if out.FineID != 0 {
		resp["fine_payment_id"] = out.FineID
		resp["fine_amount"] = out.FineAmount
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /v1/borrowings?is_active=&user_id=
func (h *Controller) List(c echo.Context) error {
	uid, staff := caller(c)

	var q bs.ListQuery
	if v := c.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid is_active"})
		}
		q.IsActive = &active
	}
	if v := c.QueryParam("user_id"); v != "" {
		target, err := strconv.ParseInt(v, 10, 64)
		if err != nil || target <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
		}
		q.UserID = &target
	}

	rows, err := h.Svc.List(c.Request().Context(), uid, staff, q)
	if err != nil {
		h.Log.Error("borrowing list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/borrowings/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, staff := caller(c)

	row, err := h.Svc.Detail(c.Request().Context(), uid, staff, id)
	if err != nil {
		if bs.Code(err) == bs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		}
		h.Log.Error("borrowing detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, row)
}
