// Package service contains the business logic.
//
// It sits between the handler and repository layers: catalog paging and
// id parsing, cart line merging and quantity caps, and the two-step upload
// (files on disk, then metadata in MongoDB). Services depend on small
// interfaces so they can be tested with in-memory fakes.
package service
