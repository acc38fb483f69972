package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate se devuelve cuando un insert viola una restriccion unique.
	ErrDuplicate = errors.New("duplicate record")
	// ErrResetTokenConsumed indica que el token ya fue canjeado, expiro o no existe
	// al momento del update condicional.
	ErrResetTokenConsumed = errors.New("reset token already consumed")
)

// mapPgError traduce errores de Postgres conocidos a errores del paquete.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, err)
	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)
	default:
		return err
	}
}
