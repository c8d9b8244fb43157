package resilience

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("pool exhausted"))
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("replica lag"))
	wrapped := fmt.Errorf("source query failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
	if !errors.Is(wrapped, inner) {
		t.Error("expected errors.Is to see the inner error")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("relation \"orders\" does not exist")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_PgError(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"57P03", true},
		{"08006", true},
		{"40001", true},
		{"53300", true},
		{"42P01", false}, // undefined_table
		{"23505", false}, // unique_violation
	}
	for _, tt := range tests {
		err := fmt.Errorf("query: %w", &pgconn.PgError{Code: tt.code})
		if got := IsTransient(err); got != tt.want {
			t.Errorf("code %s: got %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsTransient_MySQLError(t *testing.T) {
	if !IsTransient(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}) {
		t.Error("deadlock should be transient")
	}
	if IsTransient(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}) {
		t.Error("missing table should not be transient")
	}
	if !IsTransient(fmt.Errorf("ping: %w", mysql.ErrInvalidConn)) {
		t.Error("invalid connection should be transient")
	}
	if !IsTransient(driver.ErrBadConn) {
		t.Error("bad connection should be transient")
	}
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	if !IsTransient(err) {
		t.Error("ECONNREFUSED should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	for _, msg := range []string{
		"FATAL: the database system is starting up",
		"read tcp 10.0.0.1:5432: i/o timeout",
		"write: broken pipe",
	} {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("%q should be transient", msg)
		}
	}
}
