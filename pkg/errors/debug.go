package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Report flattens an error chain into loggable fields. Postgres details are
// lifted from either driver so constraint violations on orders and ledger
// rows are visible without reproducing them.
type Report struct {
	Message   string
	Code      Code
	Retryable bool
	Step      any
	Chain     []string

	PGCode       string
	PGConstraint string
	PGTable      string
	PGColumn     string
	PGDetail     string
}

func Dump(err error) Report {
	if err == nil {
		return Report{}
	}

	r := Report{Message: err.Error(), Code: CodeInternal}
	if typed := As(err); typed != nil {
		r.Code = typed.Code()
		if details, ok := typed.Details().(map[string]any); ok {
			r.Step = details["step"]
		}
	}
	r.Retryable = MetadataFor(r.Code).Retryable

	for e := err; e != nil; e = errors.Unwrap(e) {
		r.Chain = append(r.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		r.PGCode = pgxErr.Code
		r.PGConstraint = pgxErr.ConstraintName
		r.PGTable = pgxErr.TableName
		r.PGColumn = pgxErr.ColumnName
		r.PGDetail = pgxErr.Detail
	case errors.As(err, &pqErr):
		r.PGCode = string(pqErr.Code)
		r.PGConstraint = pqErr.Constraint
		r.PGTable = pqErr.Table
		r.PGColumn = pqErr.Column
		r.PGDetail = pqErr.Detail
	}
	return r
}

// Fields returns the non-empty parts of the report keyed for the logger.
func (r Report) Fields() map[string]any {
	fields := map[string]any{
		"error_code":      string(r.Code),
		"error_retryable": r.Retryable,
	}
	if len(r.Chain) > 1 {
		fields["error_chain"] = r.Chain
	}
	if r.Step != nil {
		fields["step"] = r.Step
	}
	for key, value := range map[string]string{
		"pg_code":       r.PGCode,
		"pg_constraint": r.PGConstraint,
		"pg_table":      r.PGTable,
		"pg_column":     r.PGColumn,
		"pg_detail":     r.PGDetail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
