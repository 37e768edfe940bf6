// Package sqlxrepos implements the core repositories with hand-written SQL over sqlx.
// Queries use `?` placeholders and go through Rebind, so they run on SQLite and PostgreSQL.
package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation reports whether err is a unique or primary key constraint failure.
func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case *sqlite.Error:
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || e.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isPrimaryKeyViolation reports whether err is a primary key failure on table.
func isPrimaryKeyViolation(err error, table string) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505" && e.Constraint == table+"_pkey"
	case *sqlite.Error:
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected maps an UPDATE/DELETE that touched no row to notFound.
func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) null.String { return null.NewString(s, s != "") }

func nullTime(t time.Time) null.Time { return null.NewTime(t.UTC(), !t.IsZero()) }

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// where joins ANDed conditions.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// aggTime scans timestamps returned by aggregates (MAX, MIN), which SQLite hands back as text.
type aggTime struct {
	null.Time
}

func (t *aggTime) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		t.Time = null.Time{}
		return nil
	case time.Time:
		t.Time = null.TimeFrom(v.UTC())
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("aggTime: cannot scan %T", value)
	}

	s = strings.TrimSpace(s)
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = null.TimeFrom(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("aggTime: cannot parse %q", s)
}

func (t aggTime) Value() (driver.Value, error) { return t.Time.Value() }
