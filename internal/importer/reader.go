package importer

// reader.go adapts an arbitrary CSV byte stream into a lazy, forward-only
// row sequence.
//
// The stream is wrapped so common real-world CSV issues never reach the
// parser: a UTF-8 BOM (Windows exports) is skipped, and invalid UTF-8
// sequences are replaced with U+FFFD on the fly, in constant memory. The
// field delimiter is sniffed from the first line among comma, semicolon,
// tab, and pipe.
//
// Row parsing is deliberately lenient: LazyQuotes tolerates stray quotes
// and FieldsPerRecord=-1 tolerates ragged rows (missing fields surface as
// absent values and load as NULL). Structural checks against the declared
// schema happen once, up front, in the orchestrator, not per row.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"
)

// sniffLimit is how many bytes of the first line the delimiter sniffer
// examines.
const sniffLimit = 8192

// RowReader streams CSV rows one at a time. It is forward-only and not
// restartable; the underlying stream is read exactly once.
type RowReader struct {
	csv     *csv.Reader
	peeked  []string
	hasPeek bool
}

// NewRowReader wraps r with BOM skipping and UTF-8 sanitization, sniffs the
// delimiter, and returns a reader positioned at the first row.
func NewRowReader(r io.Reader) *RowReader {
	br := bufio.NewReader(newSanitizingReader(r))

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return &RowReader{csv: cr}
}

// Next returns the next row, or io.EOF when the stream is exhausted.
// Fields are raw text exactly as extracted from the CSV.
func (rr *RowReader) Next() ([]string, error) {
	if rr.hasPeek {
		rr.hasPeek = false
		row := rr.peeked
		rr.peeked = nil
		return row, nil
	}

	row, err := rr.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		// LazyQuotes and FieldsPerRecord=-1 absorb the common malformations;
		// whatever still errors is best-effort skipped row by row.
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return rr.Next()
		}
		return nil, err
	}
	return row, nil
}

// Unread pushes row back so the next call to Next returns it again.
// Used by the orchestrator after shape-checking a headerless first row.
func (rr *RowReader) Unread(row []string) {
	rr.peeked = row
	rr.hasPeek = true
}

// sniffDelimiter inspects the first line (without consuming it) and picks
// the candidate delimiter that occurs most often. Comma wins ties and is
// the fallback when nothing matches.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(sniffLimit)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}

	best := ','
	bestCount := count(peek, ',')
	for _, cand := range []rune{';', '\t', '|'} {
		if c := count(peek, byte(cand)); c > bestCount {
			best = cand
			bestCount = c
		}
	}
	return best
}

// count counts occurrences of b outside double-quoted regions.
func count(data []byte, b byte) int {
	n := 0
	inQuotes := false
	for _, c := range data {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == b && !inQuotes:
			n++
		}
	}
	return n
}

// sanitizingReader strips a leading UTF-8 BOM and replaces invalid UTF-8
// sequences with the replacement character, streaming in constant memory.
type sanitizingReader struct {
	reader  io.Reader
	started bool

	// pending holds trailing bytes that may begin a multi-byte sequence
	// split across reads.
	pending []byte
	eof     bool
	out     []byte
}

func newSanitizingReader(r io.Reader) *sanitizingReader {
	return &sanitizingReader{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if err := s.fill(); err != nil {
			if len(s.out) == 0 {
				return 0, err
			}
			break
		}
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads one chunk from the underlying reader and sanitizes it into
// s.out.
func (s *sanitizingReader) fill() error {
	if s.eof {
		// Flush an incomplete trailing sequence as replacement characters.
		for range s.pending {
			s.out = utf8.AppendRune(s.out, utf8.RuneError)
		}
		s.pending = s.pending[:0]
		return io.EOF
	}

	buf := make([]byte, 4096)
	n, err := s.reader.Read(buf)
	if errors.Is(err, io.EOF) {
		s.eof = true
		err = nil
	} else if err != nil {
		return err
	}

	data := append(s.pending, buf[:n]...)
	s.pending = s.pending[:0]

	if !s.started {
		if len(data) < 3 && !s.eof {
			// Too few bytes to rule out a split BOM yet.
			s.pending = append(s.pending, data...)
			return nil
		}
		data = trimBOM(data)
		s.started = true
	}

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			if !s.eof && len(data) < utf8.UTFMax {
				// Might be a sequence split across reads; hold it back.
				s.pending = append(s.pending, data...)
				break
			}
			s.out = utf8.AppendRune(s.out, utf8.RuneError)
			data = data[1:]
			continue
		}
		s.out = append(s.out, data[:size]...)
		data = data[size:]
	}

	if s.eof && len(s.out) == 0 && len(s.pending) == 0 {
		return io.EOF
	}
	return nil
}

// trimBOM removes a leading UTF-8 byte order mark.
func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
