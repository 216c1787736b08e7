package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const peekSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// NewUTF8Reader detects the encoding of the input and returns a reader
// that decodes the content to UTF-8.
//
// Detection order:
//  1. Check for BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Validate if the content is valid UTF-8 and return as-is
//  3. Korean ERP exports: content that decodes as EUC-KR/CP949 into mostly Hangul
//  4. Heuristic detection via chardet
//  5. Fallback to Windows-1252
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, peekSize)

	// Peek enough bytes for BOM detection and charset heuristics.
	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	truncated := len(buf) == peekSize

	// 1. Check for BOM.
	if bytes.HasPrefix(buf, bomUTF8) {
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	}

	if bytes.HasPrefix(buf, bomUTF16LE) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	if bytes.HasPrefix(buf, bomUTF16BE) {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	// 2. If the content is valid UTF-8, return as-is. A full peek buffer may
	// cut a multi-byte rune in half, so only the complete prefix is checked.
	if validUTF8Prefix(buf, truncated) {
		return br, nil
	}

	// 3. Hangul in EUC-KR/CP949.
	if looksKorean(buf, truncated) {
		return transform.NewReader(br, korean.EUCKR.NewDecoder()), nil
	}

	// 4. Heuristic detection via chardet.
	detector := chardet.NewTextDetector()

	result, detectErr := detector.DetectBest(buf)
	if detectErr == nil {
		switch result.Charset {
		case "UTF-8":
			return br, nil
		case "EUC-KR":
			return transform.NewReader(br, korean.EUCKR.NewDecoder()), nil
		case "ISO-8859-1", "windows-1252":
			return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
		case "ISO-8859-9":
			return transform.NewReader(br, charmap.ISO8859_9.NewDecoder()), nil
		}
	}

	// 5. Fallback to Windows-1252.
	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
}

func validUTF8Prefix(buf []byte, truncated bool) bool {
	if utf8.Valid(buf) {
		return true
	}

	if !truncated {
		return false
	}

	// Drop at most one trailing partial rune.
	for i := 1; i < utf8.UTFMax && i <= len(buf); i++ {
		if utf8.RuneStart(buf[len(buf)-i]) {
			return utf8.Valid(buf[:len(buf)-i])
		}
	}

	return false
}

// looksKorean reports whether buf decodes cleanly as EUC-KR (CP949) and at
// least half of the non-ASCII runes are Hangul syllables.
func looksKorean(buf []byte, truncated bool) bool {
	decoded, err := korean.EUCKR.NewDecoder().Bytes(buf)
	if err != nil {
		return false
	}

	runes := []rune(string(decoded))
	if truncated && len(runes) > 0 && runes[len(runes)-1] == utf8.RuneError {
		runes = runes[:len(runes)-1]
	}

	var hangul, nonASCII int

	for _, r := range runes {
		if r == utf8.RuneError {
			return false
		}

		if r < utf8.RuneSelf {
			continue
		}

		nonASCII++

		if r >= 0xAC00 && r <= 0xD7A3 {
			hangul++
		}
	}

	return hangul > 0 && hangul*2 >= nonASCII
}
