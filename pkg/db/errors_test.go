package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := errors.New(`ERROR: duplicate key value violates unique constraint "idx_payments_one_pending_per_order" (SQLSTATE 23505)`)

	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not report a violation")
	}
	if !IsUniqueViolation(dup, "") {
		t.Fatal("expected any duplicate key error to match without a constraint")
	}
	if !IsUniqueViolation(dup, "idx_payments_one_pending_per_order") {
		t.Fatal("expected the named constraint to match")
	}
	if IsUniqueViolation(dup, "idx_orders_unsettled_delivered") {
		t.Fatal("a different constraint must not match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("unrelated errors must not report a violation")
	}
}
