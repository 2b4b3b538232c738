package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pzielke/todolists/internal/domain"
)

// uniqueViolation is the SQLSTATE Postgres reports for a unique-constraint
// violation.
const uniqueViolation = "23505"

// translate converts a storage error into a domain sentinel where the
// failure is an anticipated invariant violation. Detection relies on the
// structured error metadata (SQLSTATE plus constraint name), never on
// matching message text. The per-owner title index is the only constraint a
// store operation can trip; anything else propagates wrapped.
func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "title_user") {
			return domain.ErrDuplicateTitle
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
