package epubcover

import (
	"errors"
	"fmt"
)

// Reason identifies why a cover could not be resolved.
type Reason int

// Resolution failure reasons, in the order the resolver can hit them.
const (
	ReasonNone Reason = iota
	ReasonArchiveOpenFailure
	ReasonContainerNotFound
	ReasonPackageDocumentNotFound
	ReasonMalformedPackageDocument
	ReasonCoverNotFound
	ReasonCoverEntryMissing
	ReasonCoverEncrypted
)

var reasonNames = map[Reason]string{
	ReasonNone:                     "none",
	ReasonArchiveOpenFailure:       "archive_open_failure",
	ReasonContainerNotFound:        "container_not_found",
	ReasonPackageDocumentNotFound:  "package_document_not_found",
	ReasonMalformedPackageDocument: "malformed_package_document",
	ReasonCoverNotFound:            "cover_not_found",
	ReasonCoverEntryMissing:        "cover_entry_missing",
	ReasonCoverEncrypted:           "cover_encrypted",
}

// String returns the snake_case name of the reason, suitable for log
// attributes and metric labels.
func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Sentinel errors returned by the epubcover package. Every error returned by
// the resolver is a *NotFoundError that matches exactly one of these via
// errors.Is.
var (
	// ErrArchiveOpenFailure indicates the input is not a readable ZIP archive.
	ErrArchiveOpenFailure = errors.New("epubcover: cannot open archive")

	// ErrContainerNotFound indicates META-INF/container.xml is missing or
	// cannot be parsed.
	ErrContainerNotFound = errors.New("epubcover: container.xml not found")

	// ErrPackageDocumentNotFound indicates container.xml does not name an OPF
	// file, or the named file is not in the archive.
	ErrPackageDocumentNotFound = errors.New("epubcover: package document not found")

	// ErrMalformedPackageDocument indicates the OPF file is not valid XML.
	ErrMalformedPackageDocument = errors.New("epubcover: malformed package document")

	// ErrCoverNotFound indicates no manifest item matched any cover rule.
	ErrCoverNotFound = errors.New("epubcover: no cover image found")

	// ErrCoverEntryMissing indicates the cover href points at an entry that
	// does not exist in the archive.
	ErrCoverEntryMissing = errors.New("epubcover: cover entry missing from archive")

	// ErrCoverEncrypted indicates the cover entry is listed in
	// META-INF/encryption.xml with a DRM algorithm.
	ErrCoverEncrypted = errors.New("epubcover: cover entry is encrypted")
)

var reasonErrors = map[Reason]error{
	ReasonArchiveOpenFailure:       ErrArchiveOpenFailure,
	ReasonContainerNotFound:        ErrContainerNotFound,
	ReasonPackageDocumentNotFound:  ErrPackageDocumentNotFound,
	ReasonMalformedPackageDocument: ErrMalformedPackageDocument,
	ReasonCoverNotFound:            ErrCoverNotFound,
	ReasonCoverEntryMissing:        ErrCoverEntryMissing,
	ReasonCoverEncrypted:           ErrCoverEncrypted,
}

// NotFoundError is the "not found" result of a cover resolution. Reason says
// which step failed; Err, when set, carries the underlying cause.
type NotFoundError struct {
	Reason Reason
	Err    error
}

func (e *NotFoundError) Error() string {
	msg := "epubcover: cover not resolved"
	if sentinel, ok := reasonErrors[e.Reason]; ok {
		msg = sentinel.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel error for e.Reason.
func (e *NotFoundError) Is(target error) bool {
	sentinel, ok := reasonErrors[e.Reason]
	return ok && sentinel == target
}

func notFound(reason Reason, err error) error {
	return &NotFoundError{Reason: reason, Err: err}
}

// ReasonOf extracts the failure reason from an error returned by the
// resolver. It returns ReasonNone for a nil error and for errors that did not
// come from this package.
func ReasonOf(err error) Reason {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Reason
	}
	return ReasonNone
}
