// Package datarecording stores simulation records, such as traced bus
// tasks, in an SQLite database.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/pkg/errors"

	// Register the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a table whose columns are the exported fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData queues an entry into a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the tables created so far.
	ListTables() []string

	// Flush writes all the queued entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// DefaultBatchSize is the number of entries queued before an automatic
// flush.
const DefaultBatchSize = 100000

// New creates a DataRecorder writing to path.sqlite3. An empty path
// generates a unique name.
func New(path string) DataRecorder {
	if path == "" {
		path = "ambasim_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Sprintf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return newWriter(db)
}

// NewWithDB creates a DataRecorder over an opened database.
func NewWithDB(db *sql.DB) DataRecorder {
	return newWriter(db)
}

func newWriter(db *sql.DB) *sqliteWriter {
	w := &sqliteWriter{
		DB:        db,
		batchSize: DefaultBatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	name       string
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return errors.Errorf("field %s is not exported", field.Name)
		}

		if !isAllowedKind(field.Type.Kind()) {
			return errors.Errorf("field %s has unsupported type %s",
				field.Name, field.Type)
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(errors.Wrapf(err, "creating table %s", tableName))
	}

	if _, exists := w.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	columns := strings.Join(structs.Names(sampleEntry), ",\n\t")
	w.mustExecute("CREATE TABLE " + tableName + " (\n\t" + columns + "\n);")

	w.tables[tableName] = &table{
		name:       tableName,
		structType: reflect.TypeOf(sampleEntry),
	}
	w.tableOrder = append(w.tableOrder, tableName)
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry of type %s does not fit table %s",
			reflect.TypeOf(entry), tableName))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	return append([]string(nil), w.tableOrder...)
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 || w.closed {
		return
	}

	tx, err := w.Begin()
	if err != nil {
		panic(err)
	}

	for _, name := range w.tableOrder {
		t := w.tables[name]
		if len(t.entries) == 0 {
			continue
		}

		if err := insertEntries(tx, t); err != nil {
			_ = tx.Rollback()
			panic(err)
		}

		t.entries = nil
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	w.entryCount = 0
}

func insertEntries(tx *sql.Tx, t *table) error {
	placeholders := make([]string, t.structType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := tx.Prepare("INSERT INTO " + t.name +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return errors.Wrapf(err, "preparing insert into %s", t.name)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return errors.Wrapf(err, "inserting into %s", t.name)
		}
	}

	return nil
}

func (w *sqliteWriter) Close() error {
	if w.closed {
		return nil
	}

	w.Flush()
	w.closed = true

	return w.DB.Close()
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		panic(errors.Wrapf(err, "executing %q", query))
	}

	return res
}
