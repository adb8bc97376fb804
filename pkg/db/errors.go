package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When a constraint name is given, the violation must reference it. The
// sqlite message form is recognized too, for the repository tests.
func IsUniqueViolation(err error, constraint ...string) bool {
	if err == nil {
		return false
	}

	name := ""
	if len(constraint) > 0 {
		name = constraint[0]
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgUniqueViolation {
		return name == "" || pgxErr.ConstraintName == name
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return name == "" || pqErr.Constraint == name
	}

	msg := err.Error()
	if name != "" {
		return strings.Contains(msg, name)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
