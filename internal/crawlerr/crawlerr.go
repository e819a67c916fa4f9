// Package crawlerr defines the error-kind taxonomy used across the crawl
// pipeline (SPEC_FULL.md §7), so callers can branch with errors.Is instead
// of string-matching messages the way the teacher's log.Printf chains do.
package crawlerr

import "errors"

var (
	// TransientIO marks fetch timeouts and connection resets. A Job ending
	// on a TransientIO error is marked failed without retry at this layer.
	TransientIO = errors.New("transient i/o error")
	// PermanentFetch marks 4xx responses and unsupported content types.
	PermanentFetch = errors.New("permanent fetch error")
	// Parse marks malformed HTML/XML. Callers localize these: a bad
	// JSON-LD block is skipped, a bad sitemap falls back to regex.
	Parse = errors.New("parse error")
	// Store marks persistence contention or serialization failures.
	Store = errors.New("store error")
	// Cache marks cache-facade failures. Always non-fatal; never
	// propagated past the cache package boundary.
	Cache = errors.New("cache error")
	// Policy marks robots disallow, duplicate URL, or depth-exceeded
	// skips. These are not failures and must not increment failed_pages.
	Policy = errors.New("policy skip")
	// AdminCancellation marks a Job dropped by a force-stop.
	AdminCancellation = errors.New("admin cancellation")
)

// Wrap annotates err with a kind sentinel so errors.Is(wrapped, kind) holds.
func Wrap(kind error, context string, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, context: context, err: err}
}

type kindError struct {
	kind    error
	context string
	err     error
}

func (e *kindError) Error() string {
	if e.context == "" {
		return e.kind.Error() + ": " + e.err.Error()
	}
	return e.kind.Error() + ": " + e.context + ": " + e.err.Error()
}

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Is(target error) bool { return target == e.kind }
