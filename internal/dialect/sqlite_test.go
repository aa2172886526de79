package dialect

import (
	"testing"
	"time"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/testutil"
)

func TestSQLiteName(t *testing.T) {
	d := SQLite()
	if got := d.Name(); got != "sqlite" {
		t.Errorf("Name() = %q, want %q", got, "sqlite")
	}
	if Get("sqlite3") == nil || Get("postgres") != nil {
		t.Error("Get() should resolve sqlite names only")
	}
}

// -----------------------------------------------------------------------------
// Type Mappings
// -----------------------------------------------------------------------------

func TestSQLiteTypeSQL(t *testing.T) {
	d := SQLite()

	tests := []struct {
		typ  ast.ColumnType
		want string
	}{
		{ast.Integer, "INTEGER"},
		{ast.Real, "REAL"},
		{ast.Text, "TEXT"},
		{ast.Blob, "BLOB"},
		{ast.Boolean, "INTEGER"}, // 0/1
		{ast.DateTime, "DATETIME"},
		{ast.Numeric, "NUMERIC"},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if got := d.TypeSQL(tt.typ); got != tt.want {
				t.Errorf("TypeSQL(%v) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestSQLiteDefaultSQL(t *testing.T) {
	d := SQLite()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "NULL"},
		{"string", "it's", "'it''s'"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 1.5, "1.5"},
		{"bytes", []byte{0xca, 0xfe}, "X'CAFE'"},
		{"time", time.Date(2024, 5, 15, 13, 45, 0, 0, time.UTC), "'2024-05-15 13:45:00'"},
		{"expr", ast.Expr("strftime('%s','now')"), "(strftime('%s','now'))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DefaultSQL(tt.value); got != tt.want {
				t.Errorf("DefaultSQL(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// DDL
// -----------------------------------------------------------------------------

func personTable() *ast.TableSchema {
	return &ast.TableSchema{
		Name: "t_Person",
		Columns: []*ast.ColumnConstraint{
			{Name: "name", Type: ast.Text, NotNull: true, Unique: true},
			{Name: "age", Type: ast.Integer, Default: 18, HasDefault: true, Indexed: true},
			{Name: "owner", Type: ast.Integer, ForeignKey: &ast.ForeignKey{
				Table: "t_User", Column: "id", OnDelete: ast.Cascade,
			}},
		},
	}
}

func TestSQLiteCreateTableSQL(t *testing.T) {
	d := SQLite()
	schema := personTable()
	op := &ast.CreateTable{TableName: schema.Name, Columns: schema.AllColumns(), IfNotExists: true}

	got, err := d.CreateTableSQL(op)
	if err != nil {
		t.Fatalf("CreateTableSQL() error = %v", err)
	}

	testutil.AssertSQL(t, got, `CREATE TABLE IF NOT EXISTS "t_Person" (
		"c_no" INTEGER PRIMARY KEY AUTOINCREMENT,
		"name" TEXT NOT NULL UNIQUE,
		"age" INTEGER DEFAULT 18,
		"owner" INTEGER REFERENCES "t_User" ("id") ON DELETE CASCADE,
		"c_insertTimestamp" INTEGER DEFAULT (strftime('%s','now')),
		"c_insertTime" TEXT DEFAULT (datetime('now','localtime'))
	)`)
}

func TestSQLiteOperationSQLCreateTableIndexes(t *testing.T) {
	d := SQLite()
	schema := personTable()
	schema.Columns[0].UniqueIndexed = true

	stmts, err := d.OperationSQL(&ast.CreateTable{TableName: schema.Name, Columns: schema.AllColumns()})
	if err != nil {
		t.Fatalf("OperationSQL() error = %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("OperationSQL() returned %d statements, want 3: %v", len(stmts), stmts)
	}
	testutil.AssertSQL(t, stmts[1], `CREATE UNIQUE INDEX IF NOT EXISTS "uidx_t_Person_name" ON "t_Person" ("name")`)
	testutil.AssertSQL(t, stmts[2], `CREATE INDEX IF NOT EXISTS "idx_t_Person_age" ON "t_Person" ("age")`)
}

func TestSQLiteOperationSQLAddUniqueColumn(t *testing.T) {
	d := SQLite()
	op := &ast.AddColumn{TableName: "t_Person", Column: &ast.ColumnConstraint{Name: "email", Type: ast.Text, Unique: true}}

	stmts, err := d.OperationSQL(op)
	if err != nil {
		t.Fatalf("OperationSQL() error = %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("OperationSQL() = %v, want ALTER plus unique index", stmts)
	}
	testutil.AssertSQL(t, stmts[0], `ALTER TABLE "t_Person" ADD COLUMN "email" TEXT`)
	testutil.AssertSQL(t, stmts[1], `CREATE UNIQUE INDEX IF NOT EXISTS "uidx_t_Person_email" ON "t_Person" ("email")`)
	if op.Column.UniqueIndexed {
		t.Error("OperationSQL() must not mutate the declared column")
	}
}

func TestSQLiteRenameColumnSQL(t *testing.T) {
	d := SQLite()
	stmts, err := d.OperationSQL(&ast.RenameColumn{TableName: "t_Person", OldName: "mail", NewName: "email"})
	if err != nil {
		t.Fatalf("OperationSQL() error = %v", err)
	}
	testutil.AssertSQL(t, stmts[0], `ALTER TABLE "t_Person" RENAME COLUMN "mail" TO "email"`)
}

func TestSQLiteAddColumnRejectsNotNullWithoutDefault(t *testing.T) {
	d := SQLite()
	_, err := d.AddColumnSQL(&ast.AddColumn{TableName: "t_Person", Column: &ast.ColumnConstraint{Name: "code", Type: ast.Text, NotNull: true}})
	testutil.AssertError(t, err, alerr.ErrSchemaDeclaration)
}

func TestSQLiteAddColumnExpressionDefault(t *testing.T) {
	d := SQLite()

	_, err := d.OperationSQL(&ast.AddColumn{TableName: "t_Person", Column: &ast.ColumnConstraint{
		Name: "seen", Type: ast.Text, Default: ast.Expr("datetime('now')"), HasDefault: true,
	}})
	testutil.AssertError(t, err, alerr.ErrSchemaDeclaration)

	audit := ast.AuditColumns()[1]
	stmts, err := d.OperationSQL(&ast.AddColumn{TableName: "t_Person", Column: audit})
	testutil.Must(t, err)
	if len(stmts) != 2 {
		t.Fatalf("OperationSQL() = %v, want ALTER plus backfill", stmts)
	}
	testutil.AssertSQL(t, stmts[0], `ALTER TABLE "t_Person" ADD COLUMN "c_insertTime" TEXT`)
	testutil.AssertSQL(t, stmts[1], `UPDATE "t_Person" SET "c_insertTime" = (datetime('now','localtime'))`)
	if !audit.HasDefault {
		t.Error("OperationSQL() must not mutate the declared column")
	}
}

// Adding an audit column to a table that already holds rows must succeed.
func TestSQLiteAuditColumnOnPopulatedTable(t *testing.T) {
	db := testutil.SetupSQLite(t)
	d := SQLite()

	testutil.ExecSQL(t, db, `CREATE TABLE "t_Legacy" ("name" TEXT)`)
	testutil.ExecSQL(t, db, `INSERT INTO "t_Legacy" ("name") VALUES ('old')`)

	for _, col := range ast.AuditColumns() {
		stmts, err := d.OperationSQL(&ast.AddColumn{TableName: "t_Legacy", Column: col})
		testutil.Must(t, err)
		for _, s := range stmts {
			testutil.ExecSQL(t, db, s)
		}
	}

	var stamp int64
	var at string
	testutil.Must(t, db.QueryRow(`SELECT "c_insertTimestamp", "c_insertTime" FROM "t_Legacy"`).Scan(&stamp, &at))
	if stamp == 0 || at == "" {
		t.Errorf("backfill = (%d, %q), want both set", stamp, at)
	}
}

func TestSQLiteDrop(t *testing.T) {
	d := SQLite()
	testutil.AssertSQL(t, d.DropTableSQL("t_Person"), `DROP TABLE IF EXISTS "t_Person"`)
	testutil.AssertSQL(t, d.DropIndexSQL("idx_t_Person_age"), `DROP INDEX IF EXISTS "idx_t_Person_age"`)
}

// The rendered DDL must be accepted by the engine.
func TestSQLiteDDLExecutes(t *testing.T) {
	db := testutil.SetupSQLite(t)
	d := SQLite()

	testutil.ExecSQL(t, db, `CREATE TABLE "t_User" ("id" INTEGER PRIMARY KEY)`)

	schema := personTable()
	stmts, err := d.OperationSQL(&ast.CreateTable{TableName: schema.Name, Columns: schema.AllColumns()})
	testutil.Must(t, err)
	for _, s := range stmts {
		testutil.ExecSQL(t, db, s)
	}
	add, err := d.OperationSQL(&ast.AddColumn{TableName: "t_Person", Column: &ast.ColumnConstraint{
		Name: "score", Type: ast.Real, NotNull: true, Default: 0.5, HasDefault: true,
	}})
	testutil.Must(t, err)
	for _, s := range add {
		testutil.ExecSQL(t, db, s)
	}

	testutil.AssertColumnExists(t, db, "t_Person", "score")
	testutil.AssertIndexExists(t, db, "t_Person", "idx_t_Person_age")
}
