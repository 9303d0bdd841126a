package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
)

// ItemRequest references catalog entries by id.
type ItemRequest struct {
	ServiceID   uuid.UUID `json:"service_id" validate:"required"`
	ClothTypeID uuid.UUID `json:"cloth_type_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1,max=500"`
}

type AddonRequest struct {
	AddonID  uuid.UUID `json:"addon_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=500"`
}

// Quoter resolves catalog prices and runs the engine.
type Quoter interface {
	Quote(ctx context.Context, items []ItemRequest, addons []AddonRequest) (Breakdown, error)
}

type quoter struct {
	catalog Catalog
	engine  *Engine
}

func NewQuoter(catalog Catalog, engine *Engine) (Quoter, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	return &quoter{catalog: catalog, engine: engine}, nil
}

func (q *quoter) Quote(ctx context.Context, items []ItemRequest, addons []AddonRequest) (Breakdown, error) {
	if len(items) == 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	serviceIDs := make([]uuid.UUID, 0, len(items))
	clothIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		serviceIDs = append(serviceIDs, item.ServiceID)
		clothIDs = append(clothIDs, item.ClothTypeID)
	}
	addonIDs := make([]uuid.UUID, 0, len(addons))
	for _, addon := range addons {
		if addon.Quantity <= 0 {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "addon quantity must be positive")
		}
		addonIDs = append(addonIDs, addon.AddonID)
	}

	services, err := q.catalog.ServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load services")
	}
	clothTypes, err := q.catalog.ClothTypesByIDs(ctx, clothIDs)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cloth types")
	}
	addonRows, err := q.catalog.AddonsByIDs(ctx, addonIDs)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load addons")
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		svc, ok := services[item.ServiceID]
		if !ok || !svc.IsActive {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("service not found with id: %s", item.ServiceID))
		}
		cloth, ok := clothTypes[item.ClothTypeID]
		if !ok || !cloth.IsActive {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("cloth type not found with id: %s", item.ClothTypeID))
		}
		lines = append(lines, Line{
			ServiceID:   svc.ID,
			ClothTypeID: cloth.ID,
			BasePrice:   svc.BasePrice,
			Multiplier:  cloth.PriceMultiplier,
			Quantity:    item.Quantity,
		})
	}

	addonLines := make([]AddonLine, 0, len(addons))
	for _, req := range addons {
		addon, ok := addonRows[req.AddonID]
		if !ok || !addon.IsActive {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("addon not found with id: %s", req.AddonID))
		}
		addonLines = append(addonLines, AddonLine{
			AddonID:  addon.ID,
			Price:    addon.Price,
			PerItem:  addon.PerItem,
			Quantity: req.Quantity,
		})
	}

	breakdown, err := q.engine.Price(lines, addonLines)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price order")
	}
	return breakdown, nil
}
