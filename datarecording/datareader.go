package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// QueryParams selects and orders the rows returned by a query.
type QueryParams struct {
	// Where is the WHERE clause without the keyword, e.g. "Kind = ?".
	Where string
	Args  []any

	// Limit of 0 returns every row.
	Limit  int
	Offset int

	// OrderBy is the ORDER BY clause without the keywords.
	OrderBy string
}

// DataReader reads records back into Go structs.
type DataReader interface {
	// MapTable associates a table with the struct type of its entries.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables.
	ListTables() []string

	// Query returns pointers to entries of the mapped struct type and the
	// number of rows matching the WHERE clause.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
}

// NewReader opens a database file for reading.
func NewReader(filename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader over an opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for t := range r.typeMap {
		tables = append(tables, t)
	}

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, errors.Errorf("no mapping found for table %s", tableName)
	}

	where := ""
	if params.Where != "" {
		where = " WHERE " + params.Where
	}

	var total int

	err := r.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+where, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "counting %s", tableName)
	}

	query := "SELECT * FROM " + tableName + where
	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	rows, err := r.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "querying %s", tableName)
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldIndex := make(map[string]int)
	for i := 0; i < structType.NumField(); i++ {
		fieldIndex[structType.Field(i).Name] = i
	}

	var results []any

	for rows.Next() {
		ptr := reflect.New(structType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			if idx, ok := fieldIndex[col]; ok {
				targets[i] = ptr.Elem().Field(idx).Addr().Interface()
			} else {
				var discard any
				targets[i] = &discard
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}
