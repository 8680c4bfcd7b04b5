package catalog

import "errors"

var (
	// ErrInvalidFileType is returned when the catalog path lacks the .json extension.
	ErrInvalidFileType = errors.New("catalog: invalid file type")
	// ErrNotAFile is returned when the catalog path exists but is not a regular file.
	ErrNotAFile = errors.New("catalog: not a regular file")
	// ErrNotFound is returned when nothing exists at the catalog path.
	ErrNotFound = errors.New("catalog: file not found")
	// ErrParse is returned when the catalog content cannot be decoded.
	ErrParse = errors.New("catalog: parse error")
	// ErrNotLoaded is returned when generation is requested before a successful load.
	ErrNotLoaded = errors.New("catalog: items data not loaded")
	// ErrInvalidIndent is returned for a negative indent width.
	ErrInvalidIndent = errors.New("catalog: indent width must not be negative")
)
