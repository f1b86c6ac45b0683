// Package sqlxrepos implements the repositories on PostgreSQL through sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res affected no rows.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// orderBy renders an ORDER BY clause with the orderings on allowed fields, or def when none apply.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, def string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := allowed[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
