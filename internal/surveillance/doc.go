// Package surveillance provides the data transformation and aggregation engine
// for country-year tuberculosis surveillance counts.
//
// The package has no transport or storage dependencies. Web handlers, the
// refresh pipeline and tests all use it the same way.
//
// # Pipeline
//
// Raw rows are cleaned once per data refresh into an immutable [Table]:
//
//	table, report, err := surveillance.Clean(rows, surveillance.DefaultCleanOptions())
//
// Every downstream value is a pure function of the table and a query:
//
//   - [Filter] applies a [Selection] (an explicit country set or the
//     [AllCountries] wildcard, plus a year) and returns a zero-copy [View].
//   - [AggregateScalar] combines a view into one population-weighted rate.
//   - [Summarize] reports totals and weighted rates for every [Metric].
//   - [AggregateSeries] emits per-country rates over a [YearRange].
//
// All rates come from [Rate]. Nothing stores a rate next to its counts.
//
// # Errors
//
// Unparseable or incomplete rows are dropped and reported as
// [DataFormatError] values in the [CleanReport]. A repeated (country, year)
// key fails the whole clean with a [*DuplicateKeyError]. Aggregations never
// fail: an empty view yields a zero rate.
//
// # Concurrency
//
// A Table is never mutated after construction, so any number of goroutines
// may query it without locking.
package surveillance
