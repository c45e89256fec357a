package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrUnmappedTable is returned when querying a table that was never passed to
// MapTable.
var ErrUnmappedTable = errors.New("table is not mapped")

// QueryParams narrows down the rows returned by DataReader.Query.
type QueryParams struct {
	// Where is an SQL condition, such as "Kind = ? AND PageNumber = ?".
	Where string
	Args  []any

	// Limit caps the number of returned rows. Zero means no cap.
	Limit int

	Offset int

	// OrderBy lists the sort columns, such as "Session, Seq DESC".
	OrderBy string
}

func (p QueryParams) whereClause() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) pageClause() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	switch {
	case p.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	case p.Offset > 0:
		b.WriteString(" LIMIT -1")
	}

	if p.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", p.Offset)
	}

	return b.String()
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable binds a table to the struct type its rows are decoded into.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables, sorted by name.
	ListTables() []string

	// Query returns one page of rows as pointers to the mapped struct type,
	// together with the number of rows that match params.Where.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type mappedTable struct {
	entryType reflect.Type
	fields    map[string]int
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]mappedTable
}

// NewReader opens a recording read-only.
func NewReader(path string) (DataReader, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:     db,
		tables: make(map[string]mappedTable),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	entryType := reflect.TypeOf(sampleEntry)
	fields := make(map[string]int, entryType.NumField())

	for i := range entryType.NumField() {
		fields[entryType.Field(i).Name] = i
	}

	r.tables[tableName] = mappedTable{entryType: entryType, fields: fields}
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	table, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnmappedTable, tableName)
	}

	var total int

	countSQL := "SELECT COUNT(*) FROM " + tableName + params.whereClause()

	err := r.db.QueryRowContext(ctx, countSQL, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	selectSQL := "SELECT * FROM " + tableName +
		params.whereClause() + params.pageClause()

	rows, err := r.db.QueryContext(ctx, selectSQL, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := table.scan(rows)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// scan decodes each row into a new entry. Columns the entry type has no field
// for are read and dropped.
func (t mappedTable) scan(rows *sql.Rows) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var entries []any

	for rows.Next() {
		entry := reflect.New(t.entryType)
		dests := make([]any, len(columns))

		for i, column := range columns {
			if field, ok := t.fields[column]; ok {
				dests[i] = entry.Elem().Field(field).Addr().Interface()
				continue
			}

			dests[i] = new(any)
		}

		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}

		entries = append(entries, entry.Interface())
	}

	return entries, rows.Err()
}
