package mysql

import (
	"database/sql"

	driver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452
)

func isDuplicateKey(err error) bool {
	return hasErrorNumber(err, errDuplicateEntry)
}

// isMissingReference reports a foreign key pointing at a row that does not exist.
func isMissingReference(err error) bool {
	return hasErrorNumber(err, errNoReferencedRow)
}

func hasErrorNumber(err error, number uint16) bool {
	var mysqlErr *driver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == number
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// expectAffected reports notFound when the statement touched no rows.
func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
