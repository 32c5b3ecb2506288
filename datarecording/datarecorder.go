// Package datarecording persists flat structs, such as exchange records, into
// SQLite tables and reads them back.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/go-logr/logr"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder buffers rows and writes them into tables.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry of the type the table was created with.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the created tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a recorder writing into path plus the ".sqlite3" extension. An
// empty path picks a unique name. The file must not exist yet.
func New(path string, logger logr.Logger) (DataRecorder, error) {
	if path == "" {
		path = "ptpsim_dataset_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	logger.Info("database created for recording", "file", filename)

	return newWriter(db, logger), nil
}

// NewWithDB creates a recorder writing into an open database.
func NewWithDB(db *sql.DB, logger logr.Logger) DataRecorder {
	return newWriter(db, logger)
}

func newWriter(db *sql.DB, logger logr.Logger) *sqliteWriter {
	w := &sqliteWriter{
		DB:        db,
		logger:    logger,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() {
		if err := w.Flush(); err != nil {
			w.logger.Error(err, "flushing at exit")
		}
	})

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter buffers entries per table and inserts them in one transaction
// once the batch is full.
type sqliteWriter struct {
	*sql.DB

	logger     logr.Logger
	tables     map[string]*table
	tableNames []string
	batchSize  int
	entryCount int
}

func columnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

func (t *sqliteWriter) columns(sampleEntry any) ([]string, error) {
	if !structs.IsStruct(sampleEntry) {
		return nil, fmt.Errorf("entry of type %T is not a struct", sampleEntry)
	}

	fields := structs.Fields(sampleEntry)
	columns := make([]string, 0, len(fields))

	for _, f := range fields {
		sqlType, ok := columnType(f.Kind())
		if !ok {
			return nil, fmt.Errorf("field %s of kind %s cannot be recorded",
				f.Name(), f.Kind())
		}

		columns = append(columns, f.Name()+" "+sqlType)
	}

	return columns, nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	columns, err := t.columns(sampleEntry)
	if err != nil {
		return err
	}

	createTableSQL := "CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(columns, ",\n\t") + "\n);"

	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	t.tableNames = append(t.tableNames, tableName)

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("table %s holds %s, got %T",
			tableName, table.structType, entry)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.Flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	return append([]string(nil), t.tableNames...)
}

func (t *sqliteWriter) Flush() error {
	if t.entryCount == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return err
	}

	for _, tableName := range t.tableNames {
		if err := t.flushTable(tx, tableName); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	t.logger.V(1).Info("flushed entries", "count", t.entryCount)
	t.entryCount = 0

	return nil
}

func (t *sqliteWriter) flushTable(tx *sql.Tx, tableName string) error {
	table := t.tables[tableName]
	if len(table.entries) == 0 {
		return nil
	}

	placeholders := make([]string, table.structType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := tx.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", tableName, err)
		}
	}

	table.entries = nil

	return nil
}

func (t *sqliteWriter) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}

	return t.DB.Close()
}
