// Package cache memoizes expensive computations keyed by the identity of
// their inputs.
//
// A Cache holds at most a bounded number of results. Concurrent callers
// asking for the same missing key share one computation, and a result is
// only published once it has been computed successfully, so readers never
// observe partial work.
package cache
