package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogContract(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusConflict,
		CodeIdempotency:   http.StatusConflict,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeSignature:     http.StatusBadRequest,
		CodeGateway:       http.StatusBadGateway,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		meta := MetadataFor(code)
		assert.Equal(t, status, meta.HTTPStatus, code)
		assert.NotEmpty(t, meta.PublicMessage, code)
	}

	assert.True(t, MetadataFor(CodeGateway).Retryable)
	assert.False(t, MetadataFor(CodeValidation).Retryable)
	assert.True(t, MetadataFor(CodeStateConflict).DetailsAllowed)
	assert.False(t, MetadataFor(CodeInternal).ClientFacing)
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("NOT_A_CODE"))
}

func TestConstructors(t *testing.T) {
	err := New(CodeValidation, "missing weight")
	assert.Equal(t, CodeValidation, err.Code())
	assert.Equal(t, "missing weight", err.Message())
	assert.Nil(t, err.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing weight", err.Error())

	err.WithDetails(map[string]any{"field": "weight_lbs"})
	assert.NotNil(t, err.Details())

	assert.Equal(t, "slot 3 full", Newf(CodeConflict, "slot %d full", 3).Message())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load slot")
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "boom")

	var nilErr *Error
	assert.Equal(t, CodeInternal, nilErr.Code())
	assert.Nil(t, nilErr.WithDetails("x"))
}

func TestAsAndIs(t *testing.T) {
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	inner := New(CodeStateConflict, "order is DELIVERED")
	outer := fmt.Errorf("cancel: %w", inner)
	require.NotNil(t, As(outer))
	assert.Equal(t, CodeStateConflict, As(outer).Code())
	assert.True(t, Is(outer, CodeStateConflict))
	assert.False(t, Is(outer, CodeConflict))
	assert.False(t, Is(nil, CodeInternal))
}

func TestLogFields(t *testing.T) {
	assert.Nil(t, LogFields(nil))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key", TableName: "orders"}
	fields := LogFields(Wrap(CodeConflict, pgErr, "insert order").WithDetails(map[string]any{"step": "insert"}))
	assert.Equal(t, "CONFLICT", fields["error_code"])
	assert.Equal(t, "insert", fields["step"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "orders_order_number_key", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_column")
	assert.Len(t, fields["error_chain"], 2)

	fields = LogFields(fmt.Errorf("coupon: %w", &pq.Error{Code: "40001", Message: "serialization failure"}))
	assert.Equal(t, "40001", fields["pg_code"])
	assert.Equal(t, "serialization failure", fields["pg_message"])
	assert.NotContains(t, fields, "error_code")
}
