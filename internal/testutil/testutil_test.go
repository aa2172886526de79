package testutil

import (
	"errors"
	"testing"

	"github.com/hlop3z/litestore/internal/alerr"
)

func TestNormalizeSQL(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "simple",
			sql:  "SELECT * FROM users",
			want: "SELECT * FROM USERS",
		},
		{
			name: "with extra spaces",
			sql:  "SELECT  *   FROM  users",
			want: "SELECT * FROM USERS",
		},
		{
			name: "with newlines",
			sql: `SELECT *
				FROM users
				WHERE id = 1`,
			want: "SELECT * FROM USERS WHERE ID = 1",
		},
		{
			name: "with tabs",
			sql:  "SELECT\t*\tFROM\tusers",
			want: "SELECT * FROM USERS",
		},
		{
			name: "complex",
			sql: `
				CREATE TABLE "t_Person" (
					"c_no" INTEGER PRIMARY KEY AUTOINCREMENT,
					"name" TEXT NOT NULL
				)
			`,
			want: `CREATE TABLE "T_PERSON" ( "C_NO" INTEGER PRIMARY KEY AUTOINCREMENT, "NAME" TEXT NOT NULL )`,
		},
		{
			name: "leading and trailing whitespace",
			sql:  "   SELECT * FROM users   ",
			want: "SELECT * FROM USERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSQL(tt.sql)
			if got != tt.want {
				t.Errorf("NormalizeSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssertSQL(t *testing.T) {
	AssertSQL(t, "SELECT * FROM t_Person", "select * from t_person")
	AssertSQL(t, "SELECT  *  FROM\n  t_Person", "SELECT * FROM t_Person")
	AssertSQLContains(t, "SELECT * FROM t_Person WHERE age > ?", "where AGE > ?")
}

func TestAssertErrorHelpers(t *testing.T) {
	step := alerr.Wrap(alerr.ErrMigrationFailed, errors.New("boom"), "migration step failed")
	err := alerr.Wrap(alerr.ErrSchemaNotReady, step, "table is not ready")

	AssertError(t, err, alerr.ErrSchemaNotReady)
	AssertErrorChain(t, err, alerr.ErrMigrationFailed)
	AssertErrorContains(t, err, "boom")
	AssertNoError(t, nil)
}

func TestMustValue(t *testing.T) {
	got := MustValue(t, 42, nil)
	AssertEqual(t, got, 42)
}

func TestSetupSQLite(t *testing.T) {
	db := SetupSQLite(t)

	ExecSQL(t, db, `CREATE TABLE "t_Person" ("name" TEXT, "age" INTEGER)`)
	ExecSQL(t, db, `CREATE INDEX "idx_t_Person_age" ON "t_Person" ("age")`)
	ExecSQL(t, db, `INSERT INTO "t_Person" ("name", "age") VALUES (?, ?)`, "ada", 36)

	AssertTableExists(t, db, "t_Person")
	AssertTableNotExists(t, db, "t_Missing")
	AssertColumnExists(t, db, "t_Person", "age")
	AssertColumnNotExists(t, db, "t_Person", "email")
	AssertIndexExists(t, db, "t_Person", "idx_t_Person_age")
	AssertRowCount(t, db, "t_Person", 1)
}

func TestSetupSQLiteIsolated(t *testing.T) {
	a := SetupSQLite(t)
	b := SetupSQLite(t)

	ExecSQL(t, a, `CREATE TABLE "only_a" ("x" INTEGER)`)
	AssertTableNotExists(t, b, "only_a")
}

func TestSetupSQLiteFile(t *testing.T) {
	db, path := SetupSQLiteFile(t, "common.sqlite")
	if path == "" {
		t.Fatal("SetupSQLiteFile returned an empty path")
	}
	ExecSQL(t, db, `CREATE TABLE "t_Note" ("body" TEXT)`)
	AssertTableExists(t, db, "t_Note")
}
