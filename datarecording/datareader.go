package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// QueryParams selects a page of rows of a table.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, for example
	// "Session = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// OrderBy is an ordering without the ORDER BY keywords, for example
	// "rowid DESC".
	OrderBy string

	// Limit caps the number of rows returned. 0 means no cap.
	Limit int

	// Offset skips the first rows, with or without a Limit.
	Offset int
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells which struct the rows of a table are decoded into.
	// Mapping a table again replaces the struct.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the names of the tables stored in the file.
	ListTables() []string

	// Query returns the rows selected by params, as pointers to the mapped
	// struct, and the number of rows matching the condition regardless of
	// Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader
	Close() error
}

type sqliteReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
}

// NewReader opens a SQLite file for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB creates a new DataReader with a given database
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
	rows, err := r.DB.Query(
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string

		err = rows.Scan(&name)
		if err != nil {
			panic(err)
		}

		tables = append(tables, name)
	}

	err = rows.Err()
	if err != nil {
		panic(err)
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
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	// The count and the page come from the same snapshot of the file.
	tx, err := r.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	var totalCount int

	err = tx.QueryRowContext(ctx, countSQL(tableName, params), params.Args...).
		Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	rows, err := tx.QueryContext(ctx, selectSQL(tableName, params),
		params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}

func countSQL(tableName string, params QueryParams) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "SELECT COUNT(*) FROM %s", tableName)

	if params.Where != "" {
		b.WriteString(" WHERE " + params.Where)
	}

	return b.String()
}

func selectSQL(tableName string, params QueryParams) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "SELECT * FROM %s", tableName)

	if params.Where != "" {
		b.WriteString(" WHERE " + params.Where)
	}

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY " + params.OrderBy)
	}

	switch {
	case params.Limit > 0:
		fmt.Fprintf(b, " LIMIT %d", params.Limit)
	case params.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		b.WriteString(" LIMIT -1")
	}

	if params.Offset > 0 {
		fmt.Fprintf(b, " OFFSET %d", params.Offset)
	}

	return b.String()
}

// scanRows decodes each row into a new struct of the given type, matching
// columns to fields by name. Columns without a field are skipped.
func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldIndex := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		fieldIndex[structType.Field(i).Name] = i
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(structType)
		targets := make([]any, len(columns))

		for i, column := range columns {
			idx, ok := fieldIndex[column]
			if !ok {
				targets[i] = new(any)
				continue
			}

			targets[i] = entry.Elem().Field(idx).Addr().Interface()
		}

		err = rows.Scan(targets...)
		if err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}
