package litestore

import (
	"context"
	"slices"
	"testing"

	"github.com/hlop3z/litestore/internal/testutil"
)

func TestDescribe(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)
	testutil.Must(t, people.Migrate(ctx))
	testutil.Must(t, s.Exec(ctx, `CREATE TABLE scratch (x)`))

	db := people.Database()
	tables, err := db.LiveTables(ctx)
	testutil.Must(t, err)
	if !slices.Equal(tables, []string{"scratch", "t_Person"}) {
		t.Errorf("LiveTables() = %v", tables)
	}

	info, err := db.Describe(ctx, "t_Person")
	testutil.Must(t, err)
	if !info.Has("email") || !info.Has(ColumnInsertTime) {
		t.Errorf("columns = %v", info.Names())
	}
	var names []string
	for _, idx := range info.Indexes {
		names = append(names, idx.Name)
	}
	if !slices.Contains(names, "idx_t_Person_age") {
		t.Errorf("indexes = %v", names)
	}

	_, err = db.Describe(ctx, "t_Nope")
	testutil.AssertError(t, err, ErrIntrospection)
}

func TestQueryRows(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)
	seedPeople(t, people)

	rs, err := people.Database().QueryRows(ctx, `SELECT name, age FROM t_Person WHERE age > ? ORDER BY age`, 30)
	testutil.Must(t, err)
	if !slices.Equal(rs.Columns, []string{"name", "age"}) {
		t.Errorf("Columns = %v", rs.Columns)
	}
	testutil.AssertEqual(t, len(rs.Rows), 2)
	testutil.AssertEqual(t, rs.Rows[0][0], any("ana"))
	testutil.AssertEqual(t, rs.Rows[1][1], any(int64(42)))
}
