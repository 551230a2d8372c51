// Package dberr specifically handles MongoDB driver errors.
//
// It turns driver sentinels and write exceptions into the API's error
// taxonomy (e.g. a duplicate key becomes a "Bad Request" naming the
// offending field) so handlers never have to inspect driver types.
package dberr
