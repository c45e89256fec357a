// Package datarecording stores flat records into SQLite files or ClickHouse
// servers.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"
)

// DataRecorder buffers rows in memory and writes them into tables.
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the exported fields
	// of the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// ErrFileExists is returned when a recording would overwrite a file.
var ErrFileExists = errors.New("recording file already exists")

const (
	fileExtension     = ".sqlite3"
	defaultBufferSize = 100000
)

// New creates a DataRecorder that writes into a new SQLite file. The
// ".sqlite3" extension is added if missing. An empty path picks a unique name.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "vmsim_recording_" + xid.New().String()
	}

	if !strings.HasSuffix(path, fileExtension) {
		path += fileExtension
	}

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", path)

	r := newRecorder(db)
	atexit.Register(func() { _ = r.Close() })

	return r, nil
}

// NewWithDB records into an already opened database.
func NewWithDB(db *sql.DB) DataRecorder {
	return newRecorder(db)
}

func newRecorder(db *sql.DB) *recorder {
	return &recorder{
		db:         db,
		bufferSize: defaultBufferSize,
		tables:     make(map[string]*table),
	}
}

type table struct {
	entryType reflect.Type
	insertSQL string
	pending   []any
}

type recorder struct {
	mu         sync.Mutex
	db         *sql.DB
	tables     map[string]*table
	bufferSize int
	buffered   int
	closed     bool
}

func sqliteColumnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool:
		return "BOOLEAN", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

// checkStructFields makes sure every field of the entry maps to a column.
func checkStructFields(entry any) error {
	_, err := columnsOf(entry, sqliteColumnType)
	return err
}

// columnsOf returns the column definitions of an entry, typed by columnType.
func columnsOf(
	entry any,
	columnType func(reflect.Kind) (string, bool),
) ([]string, error) {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entry of type %T is not a struct", entry)
	}

	columns := make([]string, 0, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s is not exported", field.Name)
		}

		sqlType, ok := columnType(field.Type.Kind())
		if !ok {
			return nil, fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type)
		}

		columns = append(columns, field.Name+" "+sqlType)
	}

	return columns, nil
}

func (r *recorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	columns, err := columnsOf(sampleEntry, sqliteColumnType)
	if err != nil {
		panic(err)
	}

	if _, exists := r.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);",
		tableName, strings.Join(columns, ",\n\t"))
	if _, err := r.db.Exec(createSQL); err != nil {
		panic(fmt.Errorf("create table %s: %w", tableName, err))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	r.tables[tableName] = &table{
		entryType: reflect.TypeOf(sampleEntry),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			tableName,
			strings.Join(structs.Names(sampleEntry), ", "),
			placeholders),
	}
}

func (r *recorder) InsertData(tableName string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.entryType {
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	t.pending = append(t.pending, entry)
	r.buffered++

	if r.buffered >= r.bufferSize {
		r.mustFlush()
	}
}

func (r *recorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mustFlush()
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	flushErr := r.flush()
	r.closed = true

	return errors.Join(flushErr, r.db.Close())
}

func (r *recorder) mustFlush() {
	if err := r.flush(); err != nil {
		panic(err)
	}
}

// flush writes every pending entry in a single transaction.
func (r *recorder) flush() error {
	if r.buffered == 0 || r.closed {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	for name, t := range r.tables {
		if err := t.writePending(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write table %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range r.tables {
		t.pending = nil
	}

	r.buffered = 0

	return nil
}

func (t *table) writePending(tx *sql.Tx) error {
	if len(t.pending) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(t.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.pending {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}

	return nil
}
