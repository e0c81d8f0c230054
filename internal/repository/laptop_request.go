// Package repository stores laptop requests and the admin allow-list directly
// in Postgres. It is the alternative to the REST backend client and reports
// failures the same way, as *service.StatusError values carrying the SQL
// error rendered as JSON.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"travel-admin-api/internal/model"
	"travel-admin-api/internal/service"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 10 * time.Second

	// unknownColumnCode mirrors the code the REST layer uses for a column
	// missing from its schema cache.
	unknownColumnCode = "PGRST204"
)

var selectColumns = strings.Join(model.LaptopRequestColumns, ", ")

type laptopRequestRepository struct {
	DB *sql.DB
}

// NewLaptopRequestRepository creates a service.LaptopRequestStore backed by db.
func NewLaptopRequestRepository(db *sql.DB) service.LaptopRequestStore {
	return &laptopRequestRepository{DB: db}
}

// Upsert inserts row, or updates the row with the same id, and returns the
// stored row. Keys that are not laptop_requests columns are rejected.
func (r *laptopRequestRepository) Upsert(ctx context.Context, row model.Row) (model.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	query, args, err := buildUpsert(row)
	if err != nil {
		return nil, err
	}

	stored, err := scanLaptopRequest(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("upsert", err)
	}

	return stored.ToRow(), nil
}

// List returns laptop requests newest first.
func (r *laptopRequestRepository) List(ctx context.Context, q service.ListQuery) ([]model.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var (
		where string
		args  []any
	)
	if q.DestinationID != nil {
		where = fmt.Sprintf(" WHERE %s = $1", model.ColumnDestinationID)
		args = append(args, *q.DestinationID)
	}
	args = append(args, q.Limit, q.Offset)

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s DESC LIMIT $%d OFFSET $%d`,
		selectColumns, model.LaptopRequestsTable, where, model.ColumnCreatedAt, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	result := []model.Row{}
	for rows.Next() {
		lr, err := scanLaptopRequest(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan laptop request")
		}
		result = append(result, lr.ToRow())
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}

	return result, nil
}

// Delete removes a laptop request by id.
func (r *laptopRequestRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, model.LaptopRequestsTable, model.ColumnID)
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return classify("delete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(service.ErrNotFound, "laptop request %d", id)
	}
	return nil
}

type adminRepository struct {
	DB *sql.DB
}

// NewAdminRepository creates a service.AdminDirectory backed by the admins table.
func NewAdminRepository(db *sql.DB) service.AdminDirectory {
	return &adminRepository{DB: db}
}

// IsAdmin reports whether subjectID has a row in admins.
func (r *adminRepository) IsAdmin(ctx context.Context, subjectID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT id FROM %s WHERE auth_uid = $1 LIMIT 1`, model.AdminsTable)

	var id any
	if err := r.DB.QueryRowContext(ctx, query, subjectID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classify("check_admin", err)
	}
	return true, nil
}

// buildUpsert renders the statement for row. Columns are sorted so the
// statement text is stable.
func buildUpsert(row model.Row) (string, []any, error) {
	columns := make([]string, 0, len(row))
	for column := range row {
		if !model.IsLaptopRequestColumn(column) {
			return "", nil, unknownColumnError(column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	if len(columns) == 0 {
		query := fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES RETURNING %s`, model.LaptopRequestsTable, selectColumns)
		return query, nil, nil
	}

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	updates := make([]string, 0, len(columns))
	for i, column := range columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		arg, err := toArg(row[column])
		if err != nil {
			return "", nil, errors.Wrapf(err, "encode column %s", column)
		}
		args[i] = arg
		if column != model.ColumnID {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		model.LaptopRequestsTable, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, hasID := row[model.ColumnID]; hasID {
		if len(updates) == 0 {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", model.ColumnID, model.ColumnID))
		}
		query += fmt.Sprintf(` ON CONFLICT (%s) DO UPDATE SET %s`, model.ColumnID, strings.Join(updates, ", "))
	}
	query += " RETURNING " + selectColumns

	return query, args, nil
}

// toArg converts a decoded JSON value into a driver argument
func toArg(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, float64, int64:
		return val, nil
	case json.Number:
		return val.String(), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaptopRequest(s scanner) (model.LaptopRequest, error) {
	var (
		lr   model.LaptopRequest
		name sql.NullString
	)
	err := s.Scan(
		&lr.ID,
		&lr.DestinationID,
		&name,
		&lr.CustomerEmail,
		&lr.CustomerPhone,
		&lr.LaptopModel,
		&lr.LaptopSerial,
		&lr.PowerRequirements,
		&lr.SeatingPreference,
		&lr.Notes,
		&lr.CreatedAt,
	)
	lr.CustomerName = name.String
	return lr, err
}

// sqlErrorBody is the JSON shape of a database error passed back to callers
type sqlErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func unknownColumnError(column string) error {
	body, _ := json.Marshal(sqlErrorBody{
		Code:    unknownColumnCode,
		Message: fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", column, model.LaptopRequestsTable),
	})
	return &service.StatusError{Operation: "upsert", StatusCode: 400, Body: string(body)}
}

// classify turns Postgres errors into service.StatusError. Other errors, such
// as a dropped connection, are only wrapped.
func classify(operation string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return errors.Wrapf(err, "%s", operation)
	}

	body, _ := json.Marshal(sqlErrorBody{
		Code:    string(pqErr.Code),
		Message: pqErr.Message,
		Details: pqErr.Detail,
		Hint:    pqErr.Hint,
	})
	return &service.StatusError{
		Operation:  operation,
		StatusCode: statusForSQLState(pqErr.Code),
		Body:       string(body),
	}
}

// statusForSQLState maps a SQLSTATE to the HTTP status the REST layer would
// have answered with.
func statusForSQLState(code pq.ErrorCode) int {
	switch code {
	case "23503", "23505":
		return 409
	case "42501":
		return 403
	case "42P01", "42883":
		return 404
	}
	switch code.Class() {
	case "22", "23", "42":
		return 400
	case "53", "57":
		return 503
	}
	return 500
}
