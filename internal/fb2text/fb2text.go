// Package fb2text turns FictionBook bytes into UTF-8 text.
//
// The encoding comes from a byte order mark, from the shape of a BOM-less
// UTF-16 prolog, or from the encoding attribute of the XML declaration.
// The markup itself is never parsed.
package fb2text

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/hpungsan/fbz/internal/errors"
)

// prologWindow is how much of the document is searched for the declaration.
const prologWindow = 100

var encodingAttr = regexp.MustCompile(`encoding=['"]([A-Za-z](?:[A-Za-z0-9._]|-)*)['"]`)

// Text is a decoded document.
type Text struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type signature struct {
	prefix []byte
	name   string
	enc    encoding.Encoding
}

var signatures = []signature{
	{[]byte{0xEF, 0xBB, 0xBF}, "utf-8", unicode.UTF8BOM},
	{[]byte{0xFF, 0xFE}, "utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
	{[]byte{0xFE, 0xFF}, "utf-16be", unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)},
	{[]byte{0x3C, 0x00, 0x3F, 0x00}, "utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{[]byte{0x00, 0x3C, 0x00, 0x3F}, "utf-16be", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
}

// Detect returns the encoding of data and its canonical name.
func Detect(data []byte) (encoding.Encoding, string, error) {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.enc, sig.name, nil
		}
	}

	if bytes.HasPrefix(data, []byte("<?")) {
		head := data
		if len(head) > prologWindow {
			head = head[:prologWindow]
		}
		if m := encodingAttr.FindSubmatch(head); m != nil {
			label := string(m[1])
			enc, name := charset.Lookup(label)
			if enc == nil {
				return nil, "", errors.NewUnsupportedEncoding(label)
			}
			return enc, strings.ToLower(name), nil
		}
	}

	return unicode.UTF8, "utf-8", nil
}

// Decode converts data to UTF-8 text. Malformed sequences become U+FFFD.
func Decode(data []byte) (Text, error) {
	enc, name, err := Detect(data)
	if err != nil {
		return Text{}, err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return Text{}, errors.NewUnsupportedEncoding(name)
	}
	return Text{Content: string(out), Encoding: name}, nil
}
