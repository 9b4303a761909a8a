// Package record contains the data model of a query row: Record, an ordered
// field name to Value mapping, and Value, a tagged variant over json-native
// kinds plus an Other kind for values which have been rendered to string.
//
// FromGo converts plain Go values (as returned by database drivers and cloud
// clients) into Values using an explicit type table. Types not in the table
// are rejected with an EncodingError instead of being silently stringified.
package record
