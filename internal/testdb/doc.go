//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Each test runs in its own transaction which is rolled back when the test
// completes, so tests can run in parallel against the same schema:
//
//	func TestCourseStore(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        users := postgres.NewPostgresUserStore(tx)
//	        // ...
//	    })
//	}
//
// Stores that open their own transactions (courses and quotas) need a
// *sql.DB; tests using them create rows with unique identifiers instead.
//
// Tests are skipped when DATABASE_URL is not set.
package testdb
