// Package upload stores files received over multipart requests on disk.
//
// Stored names are "<unix ms>-<random in [0,1e9)>-<sanitized original>".
// Files are created with O_EXCL, so two requests can never write to the
// same file; on the rare clash a new name is drawn.
package upload

import (
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	randomSpace   = 1_000_000_000
	maxNameLength = 200
	fallbackName  = "file"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces a client supplied filename to a safe base name.
//
// Directory parts (both / and \ separators) are dropped, every run of
// characters outside [A-Za-z0-9._-] becomes "_", and leading dots are
// removed so the result is never hidden or a path traversal.
func SanitizeName(original string) string {
	name := strings.ReplaceAll(original, `\`, "/")
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")

	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 20 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}

	if name == "" || name == "_" {
		return fallbackName
	}
	return name
}

// StoredName builds the on-disk name for original. It is a pure function:
// the same inputs always give the same name.
func StoredName(now time.Time, random int64, original string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" +
		strconv.FormatInt(random, 10) + "-" +
		SanitizeName(original)
}

// Namer draws stored names from a clock and a random source.
// It is safe for concurrent use.
type Namer struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewNamer returns a Namer seeded from the runtime's random source.
func NewNamer() *Namer {
	return NewSeededNamer(rand.Uint64(), rand.Uint64(), time.Now)
}

// NewSeededNamer returns a deterministic Namer.
func NewSeededNamer(seed1, seed2 uint64, now func() time.Time) *Namer {
	return &Namer{
		rnd: rand.New(rand.NewPCG(seed1, seed2)),
		now: now,
	}
}

// Next returns a fresh stored name for original.
func (n *Namer) Next(original string) string {
	n.mu.Lock()
	random := n.rnd.Int64N(randomSpace)
	n.mu.Unlock()

	return StoredName(n.now(), random, original)
}
