// Package simulation provides a scenario harness for running the vital
// dynamics driver end to end and checking the statistical report.
//
// The harness exercises the real rate model, Driver, Validator and
// SQLiteStore. No mocks. A Scenario starts from config.Default, applies
// a Configure hook, runs the configured number of days and validates the
// event log online and after the run.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestFixedRate(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name: "fixed-rate",
//	        Seed: 7,
//	        Configure: func(c *config.Config) {
//	            c.Birth.BirthRate = 0.1
//	            c.Birth.XBirth = 10
//	        },
//	    })
//	    simulation.AssertPassed(t, result)
//	    simulation.AssertTotalWithin(t, result, models.EventBirth, 1460, 0.05)
//	}
package simulation
