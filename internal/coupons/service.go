package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/internal/pricing"
	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	msgInvalidCode     = "Invalid or inactive coupon code"
	msgNotYetValid     = "Coupon is not yet valid"
	msgExpired         = "Coupon has expired"
	msgMinOrderFmt     = "Minimum order value of %.2f required"
	msgUsageLimit      = "Coupon usage limit reached"
	msgUserLimit       = "You have already used this coupon maximum times"
	msgFirstOrderOnly  = "This coupon is valid only for first order"
	msgValid           = "Coupon applied successfully"
	msgAlreadyApplied  = "Order already has a coupon applied"
	msgDuplicateCode   = "Coupon code already exists"
	msgValidityWindow  = "Valid until date must be after valid from date"
	couponCodeUniqueIx = "uq_coupons_code"
	couponUsageOrderUx = "uq_coupon_usages_coupon_order"
)

// Service validates, applies and administers discount codes.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]models.Coupon, error)
	ListAll(ctx context.Context) ([]models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Stats(ctx context.Context, id uuid.UUID) (*UsageStats, error)
	Validate(ctx context.Context, userID uuid.UUID, code string, orderAmount decimal.Decimal) (*ValidationResult, error)
	Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*Application, error)
}

type service struct {
	repo    Repository
	metrics *metrics.DomainMetrics
	now     func() time.Time
}

// NewService builds the coupon service. now defaults to time.Now.
func NewService(repo Repository, m *metrics.DomainMetrics, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, metrics: m, now: now}, nil
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", input.DiscountType))
	}
	if err := validateDiscountValue(input.DiscountType, input.DiscountValue); err != nil {
		return nil, err
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgValidityWindow)
	}
	if input.MaxUsageCount != nil && *input.MaxUsageCount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max usage count must be positive")
	}
	perUser := input.MaxUsagePerUser
	if perUser <= 0 {
		perUser = 1
	}

	coupon := &models.Coupon{
		ID:                uuid.New(),
		Code:              code,
		Description:       input.Description,
		DiscountType:      input.DiscountType,
		DiscountValue:     pricing.Round2(input.DiscountValue),
		MaxDiscountAmount: nullDecimal(input.MaxDiscountAmount),
		MinOrderValue:     nullDecimal(input.MinOrderValue),
		MaxUsageCount:     input.MaxUsageCount,
		MaxUsagePerUser:   perUser,
		ValidFrom:         input.ValidFrom.UTC(),
		ValidUntil:        input.ValidUntil.UTC(),
		FirstOrderOnly:    input.FirstOrderOnly,
		IsActive:          true,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, couponCodeUniqueIx) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateCode)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error) {
	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = *input.Description
		coupon.Description = input.Description
	}
	if input.DiscountValue != nil {
		if err := validateDiscountValue(coupon.DiscountType, *input.DiscountValue); err != nil {
			return nil, err
		}
		coupon.DiscountValue = pricing.Round2(*input.DiscountValue)
		updates["discount_value"] = coupon.DiscountValue
	}
	if input.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = nullDecimal(input.MaxDiscountAmount)
		updates["max_discount_amount"] = coupon.MaxDiscountAmount
	}
	if input.MinOrderValue != nil {
		coupon.MinOrderValue = nullDecimal(input.MinOrderValue)
		updates["min_order_value"] = coupon.MinOrderValue
	}
	if input.MaxUsageCount != nil {
		if *input.MaxUsageCount < coupon.CurrentUsageCount {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("max usage count cannot be below current usage (%d)", coupon.CurrentUsageCount))
		}
		coupon.MaxUsageCount = input.MaxUsageCount
		updates["max_usage_count"] = *input.MaxUsageCount
	}
	if input.MaxUsagePerUser != nil {
		if *input.MaxUsagePerUser <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max usage per user must be positive")
		}
		coupon.MaxUsagePerUser = *input.MaxUsagePerUser
		updates["max_usage_per_user"] = *input.MaxUsagePerUser
	}
	if input.ValidFrom != nil {
		coupon.ValidFrom = input.ValidFrom.UTC()
		updates["valid_from"] = coupon.ValidFrom
	}
	if input.ValidUntil != nil {
		coupon.ValidUntil = input.ValidUntil.UTC()
		updates["valid_until"] = coupon.ValidUntil
	}
	if !coupon.ValidUntil.After(coupon.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgValidityWindow)
	}
	if input.FirstOrderOnly != nil {
		coupon.FirstOrderOnly = *input.FirstOrderOnly
		updates["first_order_only"] = *input.FirstOrderOnly
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
		updates["is_active"] = *input.IsActive
	}

	if err := s.repo.Update(ctx, coupon.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return coupon, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate coupon")
	}
	return nil
}

// ListActive returns active coupons whose validity window contains now.
func (s *service) ListActive(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	now := s.now().UTC()
	out := make([]models.Coupon, 0, len(rows))
	for _, row := range rows {
		if now.Before(row.ValidFrom) || now.After(row.ValidUntil) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("coupon not found with code: %s", NormalizeCode(code)))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (*UsageStats, error) {
	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	amounts, err := s.repo.UsageDiscounts(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon usage")
	}
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}

	stats := &UsageStats{
		CouponID:      coupon.ID,
		Code:          coupon.Code,
		UsageCount:    coupon.CurrentUsageCount,
		MaxUsageCount: coupon.MaxUsageCount,
		TotalDiscount: pricing.Round2(total),
		IsActive:      coupon.IsActive,
	}
	if coupon.MaxUsageCount != nil {
		remaining := *coupon.MaxUsageCount - coupon.CurrentUsageCount
		if remaining < 0 {
			remaining = 0
		}
		stats.RemainingUses = &remaining
	}
	return stats, nil
}

func (s *service) Validate(ctx context.Context, userID uuid.UUID, code string, orderAmount decimal.Decimal) (*ValidationResult, error) {
	result, _, err := s.evaluate(ctx, s.repo, userID, NormalizeCode(code), orderAmount, uuid.Nil)
	return result, err
}

// Apply re-validates the code against the caller's transaction, records the
// usage row and bumps the usage counter. The caller persists the discount on
// the order in the same transaction.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*Application, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	repo := s.repo.WithTx(tx)
	code := NormalizeCode(input.Code)

	result, coupon, err := s.evaluate(ctx, repo, input.UserID, code, input.OrderAmount, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		s.metrics.CouponApplication("rejected")
		return nil, rejectionError(result.Message)
	}
	if input.ExistingCouponID != nil {
		s.metrics.CouponApplication("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyApplied)
	}

	affected, err := repo.IncrementUsage(ctx, coupon.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if affected == 0 {
		s.metrics.CouponApplication("exhausted")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgUsageLimit)
	}
	// recount under the coupon row lock taken by IncrementUsage
	used, err := repo.CountUserUsages(ctx, coupon.ID, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon usage")
	}
	if used >= int64(coupon.MaxUsagePerUser) {
		s.metrics.CouponApplication("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgUserLimit)
	}

	usage := &models.CouponUsage{
		ID:             uuid.New(),
		CouponID:       coupon.ID,
		UserID:         input.UserID,
		OrderID:        input.OrderID,
		DiscountAmount: result.DiscountAmount,
		UsedAt:         s.now().UTC(),
	}
	if err := repo.CreateUsage(ctx, usage); err != nil {
		if db.IsUniqueViolation(err, couponUsageOrderUx) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyApplied)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	coupon.CurrentUsageCount++

	s.metrics.CouponApplication("applied")
	return &Application{Coupon: coupon, Usage: usage, DiscountAmount: result.DiscountAmount}, nil
}

// evaluate runs the eligibility checks in order and stops at the first failure.
func (s *service) evaluate(ctx context.Context, repo Repository, userID uuid.UUID, code string, amount decimal.Decimal, excludeOrderID uuid.UUID) (*ValidationResult, *models.Coupon, error) {
	result := &ValidationResult{Code: code, DiscountAmount: decimal.Zero}
	invalid := func(msg string) (*ValidationResult, *models.Coupon, error) {
		result.Valid = false
		result.Message = msg
		return result, nil, nil
	}

	if code == "" {
		return invalid(msgInvalidCode)
	}
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid(msgInvalidCode)
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsActive {
		return invalid(msgInvalidCode)
	}

	now := s.now().UTC()
	if now.Before(coupon.ValidFrom) {
		return invalid(msgNotYetValid)
	}
	if now.After(coupon.ValidUntil) {
		return invalid(msgExpired)
	}
	if coupon.MinOrderValue.Valid && amount.LessThan(coupon.MinOrderValue.Decimal) {
		return invalid(fmt.Sprintf(msgMinOrderFmt, coupon.MinOrderValue.Decimal.InexactFloat64()))
	}
	if coupon.MaxUsageCount != nil && coupon.CurrentUsageCount >= *coupon.MaxUsageCount {
		return invalid(msgUsageLimit)
	}

	used, err := repo.CountUserUsages(ctx, coupon.ID, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon usage")
	}
	if used >= int64(coupon.MaxUsagePerUser) {
		return invalid(msgUserLimit)
	}

	if coupon.FirstOrderOnly {
		prior, err := repo.CountPriorOrders(ctx, userID, excludeOrderID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count prior orders")
		}
		if prior > 0 {
			return invalid(msgFirstOrderOnly)
		}
	}

	id := coupon.ID
	result.Valid = true
	result.Message = msgValid
	result.CouponID = &id
	result.DiscountType = coupon.DiscountType
	result.DiscountAmount = ComputeDiscount(coupon, amount)
	return result, coupon, nil
}

// ComputeDiscount returns the discount a coupon grants on amount, never more
// than amount itself.
func ComputeDiscount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	if coupon == nil || !amount.IsPositive() {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = pricing.Round2(amount.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100)))
		if coupon.MaxDiscountAmount.Valid && discount.GreaterThan(coupon.MaxDiscountAmount.Decimal) {
			discount = coupon.MaxDiscountAmount.Decimal
		}
	case enums.DiscountTypeFixedAmount:
		discount = coupon.DiscountValue
	default:
		discount = decimal.Zero
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	return pricing.Round2(discount)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("coupon not found with id: %s", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func rejectionError(message string) error {
	switch message {
	case msgUsageLimit, msgUserLimit:
		return pkgerrors.New(pkgerrors.CodeConflict, message)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	}
}

func validateDiscountValue(kind enums.DiscountType, value decimal.Decimal) error {
	if value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}
	if kind == enums.DiscountTypePercentage && (value.IsZero() || value.GreaterThan(decimal.NewFromInt(100))) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount must be between 0 and 100")
	}
	if kind == enums.DiscountTypeFixedAmount && value.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "fixed discount must be positive")
	}
	return nil
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: pricing.Round2(*value), Valid: true}
}
