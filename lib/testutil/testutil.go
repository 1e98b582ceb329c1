package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"utprint/lib/telemetry"

	"github.com/mazen160/go-random"

	_ "modernc.org/sqlite"
)

// Setup installs test logging and returns its cleanup.
func Setup(t testing.TB, name string) func() {
	t.Helper()
	return telemetry.SetupForTesting(fmt.Sprintf("test:%s", name))
}

// OpenDB opens an in-memory sqlite database with schema applied, it is
// closed when the test ends.
func OpenDB(t testing.TB, schema string) *sql.DB {
	t.Helper()

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a new database
	sqlite.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlite.Close() })

	_, err = sqlite.Exec(schema)
	if err != nil {
		t.Fatal(err)
	}
	return sqlite
}

// RandomToken returns a session token no server has issued.
func RandomToken(t testing.TB) string {
	t.Helper()
	token, err := random.String(32)
	if err != nil {
		t.Fatal(err)
	}
	return token
}
