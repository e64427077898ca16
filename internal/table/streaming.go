package table

// streaming.go provides the reader wrappers applied to uploaded CSV data
// before parsing:
//
//   - utf8Sanitizer: Replaces invalid UTF-8 sequences with '?'
//   - bomSkippingReader: Removes UTF-8 BOM (0xEF 0xBB 0xBF) from Windows files
//   - LimitedReader: Fails with ErrFileTooLarge past a byte budget
//
// Use wrapInput to apply the first two in the correct order.

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned by LimitedReader once the byte budget is exceeded.
var ErrFileTooLarge = errors.New("file too large")

// utf8Sanitizer wraps an io.Reader and replaces invalid UTF-8 sequences on the
// fly. Spreadsheets exported as Latin-1 are the usual source of these bytes.
type utf8Sanitizer struct {
	reader io.Reader

	// Leftover bytes from previous read that may form a multi-byte sequence
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// When atEOF is false an incomplete trailing sequence is held back in pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailingBytes(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if !atEOF && read+size >= len(data) && runeLen(data[read]) > len(data)-read {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			// '?' instead of U+FFFD so the buffer never grows.
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTrailingBytes returns how many bytes at the end of data could be
// the start of an unfinished multi-byte sequence.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// bomSkippingReader drops a leading UTF-8 BOM, commonly written by Excel's
// "CSV UTF-8" export.
type bomSkippingReader struct {
	reader  io.Reader
	checked bool
	buf     [3]byte
	rest    []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF {
			r.rest = nil
		} else {
			r.rest = r.buf[:n]
		}
		if len(r.rest) == 0 && err == io.EOF {
			return 0, io.EOF
		}
	}

	if len(r.rest) > 0 {
		n := copy(p, r.rest)
		r.rest = r.rest[n:]
		return n, nil
	}
	return r.reader.Read(p)
}

// wrapInput applies BOM stripping first, then UTF-8 sanitization.
func wrapInput(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMSkippingReader(r))
}

// LimitedReader wraps an io.Reader and fails once more than Max bytes have
// been read. Max <= 0 disables the limit.
type LimitedReader struct {
	R   io.Reader
	Max int64
	N   int64 // Bytes read so far
}

// NewLimitedReader returns a reader that fails with ErrFileTooLarge past limit bytes.
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{R: r, Max: limit}
}

// Read implements io.Reader.
func (l *LimitedReader) Read(p []byte) (int, error) {
	n, err := l.R.Read(p)
	l.N += int64(n)
	if l.Max > 0 && l.N > l.Max {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, l.Max)
	}
	return n, err
}
