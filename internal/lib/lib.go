// Package lib acts as a library for modules that do not fit
// strictly into other layers.
//
// It contains background task supervision (bgtask) and the
// upload naming and disk storage used by the upload endpoint (upload).
package lib
