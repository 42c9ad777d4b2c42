package mp4

import (
	"fmt"
	"io"
)

// Entry describes one top-level box a Scanner has stopped on, before its
// body is (optionally) read.
type Entry struct {
	Type BoxType
	Size uint64 // total encoded size, header included

	headerLen int
}

// DataSize returns the number of body bytes remaining to be read via ReadBody.
func (e Entry) DataSize() int64 { return int64(e.Size) - int64(e.headerLen) }

// Scanner walks the top-level boxes of a stream without holding the whole
// file in memory: Next reads just a box's header, and the caller decides
// whether to ReadBody it (for moov/moof/ftyp) or let the next Next call
// skip over it (for mdat and anything else not worth buffering).
type Scanner struct {
	r       io.Reader
	err     error
	pending int64 // unread body bytes of the current entry
	cur     Entry
}

// NewScanner returns a Scanner reading sequentially from r.
func NewScanner(r io.Reader) Scanner {
	return Scanner{r: r}
}

// Err reports the first read or parse error encountered, if any.
func (s *Scanner) Err() error { return s.err }

// Entry returns the box header Next last stopped on.
func (s *Scanner) Entry() Entry { return s.cur }

// Next skips any unread body bytes of the previous entry, then reads the
// next box header. It returns false at EOF or on error (check Err).
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	if s.pending > 0 {
		if _, err := io.CopyN(io.Discard, s.r, s.pending); err != nil {
			s.err = fmt.Errorf("skip box body: %w", ErrStreamError)
			return false
		}
		s.pending = 0
	}

	var hdr [8]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		if err != io.EOF {
			s.err = fmt.Errorf("read box header: %w", ErrStreamError)
		}
		return false
	}
	size := uint64(be.Uint32(hdr[0:4]))
	var t BoxType
	copy(t[:], hdr[4:8])
	headerLen := 8

	if size == 1 {
		var ext [8]byte
		if _, err := io.ReadFull(s.r, ext[:]); err != nil {
			s.err = fmt.Errorf("read box largesize: %w", ErrStreamError)
			return false
		}
		size = be.Uint64(ext[:])
		headerLen = 16
	}
	if size != 0 && size < uint64(headerLen) {
		s.err = fmt.Errorf("box %s size too small: %w", t, ErrInvalidData)
		return false
	}

	s.cur = Entry{Type: t, Size: size, headerLen: headerLen}
	if size == 0 {
		// Extends to EOF; the caller must ReadBody exactly what it wants
		// and treat anything beyond as unbounded. We report no pending
		// bytes here and let a ReadBody call size itself off DataSize,
		// which is meaningless for size 0 — mirroring the common case
		// (mdat truncated to file end) where the caller already knows
		// how much it wants to read.
		s.pending = 0
		return true
	}
	s.pending = int64(size) - int64(headerLen)
	return true
}

// ReadBody reads the current entry's body into buf, which must be exactly
// len(buf) == Entry().DataSize() bytes.
func (s *Scanner) ReadBody(buf []byte) error {
	if int64(len(buf)) != s.pending {
		return fmt.Errorf("read box body: buffer size %d != body size %d: %w", len(buf), s.pending, ErrFunctionParam)
	}
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return fmt.Errorf("read box body: %w", ErrStreamError)
	}
	s.pending = 0
	return nil
}
