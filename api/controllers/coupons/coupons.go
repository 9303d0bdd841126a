package coupons

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/washfold-backend/api/middleware"
	"github.com/angelmondragon/washfold-backend/api/responses"
	"github.com/angelmondragon/washfold-backend/api/validators"
	internalcoupons "github.com/angelmondragon/washfold-backend/internal/coupons"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

type validateRequest struct {
	Code        string          `json:"code" validate:"required,max=50"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

type createRequest struct {
	Code              string             `json:"code" validate:"required,min=3,max=50"`
	Description       *string            `json:"description,omitempty" validate:"omitempty,max=500"`
	DiscountType      enums.DiscountType `json:"discount_type" validate:"required"`
	DiscountValue     decimal.Decimal    `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal   `json:"max_discount_amount,omitempty"`
	MinOrderValue     *decimal.Decimal   `json:"min_order_value,omitempty"`
	MaxUsageCount     *int               `json:"max_usage_count,omitempty" validate:"omitempty,min=1"`
	MaxUsagePerUser   int                `json:"max_usage_per_user,omitempty" validate:"omitempty,min=1"`
	ValidFrom         time.Time          `json:"valid_from" validate:"required"`
	ValidUntil        time.Time          `json:"valid_until" validate:"required"`
	FirstOrderOnly    bool               `json:"first_order_only,omitempty"`
}

type updateRequest struct {
	Description       *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	DiscountValue     *decimal.Decimal `json:"discount_value,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinOrderValue     *decimal.Decimal `json:"min_order_value,omitempty"`
	MaxUsageCount     *int             `json:"max_usage_count,omitempty" validate:"omitempty,min=1"`
	MaxUsagePerUser   *int             `json:"max_usage_per_user,omitempty" validate:"omitempty,min=1"`
	ValidFrom         *time.Time       `json:"valid_from,omitempty"`
	ValidUntil        *time.Time       `json:"valid_until,omitempty"`
	FirstOrderOnly    *bool            `json:"first_order_only,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
}

type couponResponse struct {
	ID                uuid.UUID          `json:"id"`
	Code              string             `json:"code"`
	Description       *string            `json:"description,omitempty"`
	DiscountType      enums.DiscountType `json:"discount_type"`
	DiscountValue     decimal.Decimal    `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal   `json:"max_discount_amount,omitempty"`
	MinOrderValue     *decimal.Decimal   `json:"min_order_value,omitempty"`
	MaxUsageCount     *int               `json:"max_usage_count,omitempty"`
	MaxUsagePerUser   int                `json:"max_usage_per_user"`
	CurrentUsageCount int                `json:"current_usage_count"`
	ValidFrom         time.Time          `json:"valid_from"`
	ValidUntil        time.Time          `json:"valid_until"`
	FirstOrderOnly    bool               `json:"first_order_only"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toResponse(c *models.Coupon) couponResponse {
	resp := couponResponse{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      c.DiscountType,
		DiscountValue:     c.DiscountValue,
		MaxUsageCount:     c.MaxUsageCount,
		MaxUsagePerUser:   c.MaxUsagePerUser,
		CurrentUsageCount: c.CurrentUsageCount,
		ValidFrom:         c.ValidFrom,
		ValidUntil:        c.ValidUntil,
		FirstOrderOnly:    c.FirstOrderOnly,
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
	}
	if c.MaxDiscountAmount.Valid {
		v := c.MaxDiscountAmount.Decimal
		resp.MaxDiscountAmount = &v
	}
	if c.MinOrderValue.Valid {
		v := c.MinOrderValue.Decimal
		resp.MinOrderValue = &v
	}
	return resp
}

func toResponses(rows []models.Coupon) []couponResponse {
	out := make([]couponResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i]))
	}
	return out
}

// Validate checks a code for the caller without consuming it.
func Validate(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}
		userID, err := middleware.UserUUIDFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body validateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.OrderAmount.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_amount must not be negative"))
			return
		}

		result, err := svc.Validate(r.Context(), userID, body.Code, body.OrderAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminCreate(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), internalcoupons.CreateCouponInput{
			Code:              body.Code,
			Description:       body.Description,
			DiscountType:      enums.DiscountType(strings.ToUpper(string(body.DiscountType))),
			DiscountValue:     body.DiscountValue,
			MaxDiscountAmount: body.MaxDiscountAmount,
			MinOrderValue:     body.MinOrderValue,
			MaxUsageCount:     body.MaxUsageCount,
			MaxUsagePerUser:   body.MaxUsagePerUser,
			ValidFrom:         body.ValidFrom,
			ValidUntil:        body.ValidUntil,
			FirstOrderOnly:    body.FirstOrderOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toResponse(coupon))
	}
}

func AdminUpdate(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), couponID, internalcoupons.UpdateCouponInput{
			Description:       body.Description,
			DiscountValue:     body.DiscountValue,
			MaxDiscountAmount: body.MaxDiscountAmount,
			MinOrderValue:     body.MinOrderValue,
			MaxUsageCount:     body.MaxUsageCount,
			MaxUsagePerUser:   body.MaxUsagePerUser,
			ValidFrom:         body.ValidFrom,
			ValidUntil:        body.ValidUntil,
			FirstOrderOnly:    body.FirstOrderOnly,
			IsActive:          body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponse(coupon))
	}
}

// AdminDeactivate soft-deletes a coupon.
func AdminDeactivate(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminList returns every coupon, or only usable ones with ?active=true.
func AdminList(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var (
			rows []models.Coupon
			err  error
		)
		if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true") {
			rows, err = svc.ListActive(r.Context())
		} else {
			rows, err = svc.ListAll(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponses(rows))
	}
}

func AdminGetByCode(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required"))
			return
		}

		coupon, err := svc.GetByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponse(coupon))
	}
}

func AdminStats(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
