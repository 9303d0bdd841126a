package address

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/washfold-backend/pkg/db/dbtest"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/errors"
)

func TestRequireOwned(t *testing.T) {
	db := dbtest.Open(t)
	owner := uuid.New()
	home := models.Address{ID: uuid.New(), UserID: owner, Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001"}
	other := models.Address{ID: uuid.New(), UserID: uuid.New(), Line1: "4 Park St", City: "Kolkata", PostalCode: "700016"}
	for _, a := range []*models.Address{&home, &other} {
		if err := db.Create(a).Error; err != nil {
			t.Fatalf("seed address: %v", err)
		}
	}
	dir := NewDirectory(db)

	got, err := dir.RequireOwned(context.Background(), owner, home.ID, home.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[home.ID].City != "Bengaluru" {
		t.Fatalf("unexpected addresses %+v", got)
	}

	_, err = dir.RequireOwned(context.Background(), owner, home.ID, other.ID)
	if typed := errors.As(err); typed == nil || typed.Code() != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = dir.RequireOwned(context.Background(), owner, uuid.Nil)
	if typed := errors.As(err); typed == nil || typed.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
