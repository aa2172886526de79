// Package testutil provides test helpers for litestore.
//
// This package includes:
//   - In-memory and file-backed SQLite databases (modernc.org/sqlite)
//   - Schema assertions for tables, columns and indexes
//   - SQL assertion helpers for comparing rendered statements
//   - Error assertion helpers for checking alerr codes
//
// # Example Usage
//
//	func TestMyFeature(t *testing.T) {
//	    db := testutil.SetupSQLite(t)
//
//	    testutil.ExecSQL(t, db, `CREATE TABLE "t_Person" (name TEXT)`)
//	    testutil.AssertTableExists(t, db, "t_Person")
//
//	    got, _, err := stmt.Render()
//	    testutil.AssertNoError(t, err)
//	    testutil.AssertSQL(t, got, `SELECT * FROM "t_Person"`)
//	}
package testutil
