// Package segment implements the validated path-component string used for
// index names and link names throughout tracebox.
package segment

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/tracebox-dev/tracebox/internal/wire"
)

// MaxLength is the exclusive upper bound on a Segment's text length in UTF-8
// bytes: the longest accepted text is MaxLength-1 bytes.
const MaxLength = 256

// validRune reports whether r belongs to original_source's Segment grammar:
// space, an alphabetic character, a digit, a Pattern_Syntax punctuation
// character, or an emoji (approximated here, as in the original's case, by
// the Unicode "other symbol" category). Pattern_Syntax is a binary Unicode
// property, not a category or script, so it cannot be named in a regexp
// character class and is checked with unicode.Is instead.
func validRune(r rune) bool {
	switch {
	case r == ' ':
		return true
	case unicode.IsLetter(r):
		return true
	case unicode.IsDigit(r):
		return true
	case unicode.Is(unicode.Pattern_Syntax, r):
		return true
	case unicode.Is(unicode.So, r):
		return true
	default:
		return false
	}
}

var (
	// ErrEmpty indicates an empty string was given as a Segment.
	ErrEmpty = errors.New("segment: empty")
	// ErrTooLong indicates the text is MaxLength bytes or longer.
	ErrTooLong = errors.New("segment: too long")
	// ErrInvalidCharacter indicates the text contains a character outside
	// Segment's grammar.
	ErrInvalidCharacter = errors.New("segment: invalid character")
)

// PathError wraps a Segment validation failure with the offending text.
type PathError struct {
	Text string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("segment %q: %v", e.Text, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Segment is a validated, bounded-length display name: an index's own name,
// or the name attached to a link entry.
type Segment struct {
	text string
}

// New validates text against Segment's grammar and length bound.
func New(text string) (Segment, error) {
	if text == "" {
		return Segment{}, &PathError{Text: text, Err: ErrEmpty}
	}
	if len(text) >= MaxLength {
		return Segment{}, &PathError{Text: text, Err: ErrTooLong}
	}
	for _, r := range text {
		if !validRune(r) {
			return Segment{}, &PathError{Text: text, Err: ErrInvalidCharacter}
		}
	}
	return Segment{text: text}, nil
}

// String returns the segment's text.
func (s Segment) String() string {
	return s.text
}

// EncodeTo writes the segment as a NUL-terminated string.
func (s Segment) EncodeTo(w *wire.Writer) {
	w.WriteNulString(s.text)
}

// DecodeFrom reads a NUL-terminated string and validates it as a Segment.
func (s *Segment) DecodeFrom(r *wire.Reader) error {
	text, err := r.ReadNulString()
	if err != nil {
		return err
	}
	parsed, err := New(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
