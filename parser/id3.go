package parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/kbukum/metatrack/codec"
)

// MimeID3 is the sample mime type of ID3 timed metadata.
const MimeID3 = "application/id3"

var (
	// ErrNotID3 is returned for payloads that do not start with an ID3v2 header.
	ErrNotID3 = errors.New("id3: missing ID3v2 header")
	// ErrUnsupportedVersion is returned for ID3v2 versions other than 2.3 and 2.4.
	ErrUnsupportedVersion = errors.New("id3: unsupported version")
	// ErrTruncated is returned when a size field points past the payload.
	ErrTruncated = errors.New("id3: truncated tag")
	// ErrMalformed is returned for invalid frame contents.
	ErrMalformed = errors.New("id3: malformed frame")
)

const (
	headerSize      = 10
	frameHeaderSize = 10

	tagFlagUnsync   = 0x80
	tagFlagExtended = 0x40

	v3FlagCompressed = 0x80
	v3FlagEncrypted  = 0x40
	v3FlagGrouped    = 0x20

	v4FlagGrouped    = 0x40
	v4FlagCompressed = 0x08
	v4FlagEncrypted  = 0x04
	v4FlagUnsync     = 0x02
	v4FlagDataLength = 0x01
)

// Text encodings of ID3v2 text frames.
const (
	EncodingISO88591 byte = 0
	EncodingUTF16    byte = 1
	EncodingUTF16BE  byte = 2
	EncodingUTF8     byte = 3
)

// Tag is a decoded ID3v2 tag.
type Tag struct {
	Major    uint8
	Revision uint8
	Frames   []Frame
}

// Frame is one ID3v2 frame. Data always holds the frame payload after
// unsynchronisation and decompression. The other fields are filled for the
// frame kinds that define them.
type Frame struct {
	ID string
	// Text holds the values of text frames (T***), TXXX, COMM and USLT.
	Text []string
	// Description is set for TXXX, WXXX, COMM and USLT.
	Description string
	// Language is the ISO-639-2 code of COMM and USLT.
	Language string
	// URL is set for URL frames (W***).
	URL string
	// Owner is the owner identifier of PRIV frames.
	Owner string
	Data  []byte
}

// Frame returns the first frame with the given ID.
func (t *Tag) Frame(id string) (Frame, bool) {
	for _, f := range t.Frames {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}

// Text returns the first value of the first text frame with the given ID.
func (t *Tag) Text(id string) (string, bool) {
	f, ok := t.Frame(id)
	if !ok || len(f.Text) == 0 {
		return "", false
	}
	return f.Text[0], true
}

// UserText returns the value of the TXXX frame with the given description.
func (t *Tag) UserText(description string) (string, bool) {
	for _, f := range t.Frames {
		if f.ID == "TXXX" && f.Description == description && len(f.Text) > 0 {
			return f.Text[0], true
		}
	}
	return "", false
}

// Private returns the data of the PRIV frame with the given owner.
func (t *Tag) Private(owner string) ([]byte, bool) {
	for _, f := range t.Frames {
		if f.ID == "PRIV" && f.Owner == owner {
			return f.Data, true
		}
	}
	return nil, false
}

// ID3 parses ID3v2.3 and ID3v2.4 tags. Encrypted frames are skipped.
// ID3v2.2 and earlier are rejected with ErrUnsupportedVersion.
type ID3 struct{}

// CanParse implements metadata.Parser.
func (ID3) CanParse(mimeType string) bool { return mimeType == MimeID3 }

// Parse implements metadata.Parser.
func (ID3) Parse(data []byte) (*Tag, error) {
	if len(data) < headerSize || !bytes.HasPrefix(data, []byte("ID3")) {
		return nil, ErrNotID3
	}
	// Frames keep slices of the tag body.
	data = bytes.Clone(data)
	tag := &Tag{Major: data[3], Revision: data[4]}
	if tag.Major != 3 && tag.Major != 4 {
		return nil, fmt.Errorf("%w: 2.%d", ErrUnsupportedVersion, tag.Major)
	}
	flags := data[5]
	size := synchsafe(data[6:10])
	if headerSize+size > len(data) {
		return nil, ErrTruncated
	}
	body := data[headerSize : headerSize+size]

	if tag.Major == 3 && flags&tagFlagUnsync != 0 {
		body = removeUnsync(body)
	}
	if flags&tagFlagExtended != 0 {
		if len(body) < 4 {
			return nil, ErrTruncated
		}
		n := synchsafe(body[:4])
		if tag.Major == 3 {
			n = int(binary.BigEndian.Uint32(body[:4])) + 4
		}
		if n > len(body) {
			return nil, ErrTruncated
		}
		body = body[n:]
	}

	for len(body) >= frameHeaderSize && body[0] != 0 {
		id := string(body[:4])
		if !validFrameID(id) {
			return nil, fmt.Errorf("%w: invalid frame id %q", ErrMalformed, id)
		}
		fsize := synchsafe(body[4:8])
		if tag.Major == 3 {
			fsize = int(binary.BigEndian.Uint32(body[4:8]))
		}
		formatFlags := body[9]
		if fsize < 0 || frameHeaderSize+fsize > len(body) {
			return nil, ErrTruncated
		}
		payload := body[frameHeaderSize : frameHeaderSize+fsize]
		body = body[frameHeaderSize+fsize:]

		payload, skip, err := frameData(tag.Major, formatFlags, payload)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", id, err)
		}
		if skip {
			continue
		}
		frame, err := decodeFrame(id, payload)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", id, err)
		}
		tag.Frames = append(tag.Frames, frame)
	}
	return tag, nil
}

// frameData strips the extra header bytes announced by the format flags and
// undoes unsynchronisation and compression. skip is set for encrypted frames.
func frameData(major, flags byte, p []byte) (out []byte, skip bool, err error) {
	take := func(n int) error {
		if len(p) < n {
			return ErrTruncated
		}
		p = p[n:]
		return nil
	}

	var compressed, encrypted bool
	if major == 3 {
		compressed = flags&v3FlagCompressed != 0
		encrypted = flags&v3FlagEncrypted != 0
		if compressed {
			if err := take(4); err != nil {
				return nil, false, err
			}
		}
		if encrypted {
			return nil, true, nil
		}
		if flags&v3FlagGrouped != 0 {
			if err := take(1); err != nil {
				return nil, false, err
			}
		}
	} else {
		compressed = flags&v4FlagCompressed != 0
		encrypted = flags&v4FlagEncrypted != 0
		if flags&v4FlagGrouped != 0 {
			if err := take(1); err != nil {
				return nil, false, err
			}
		}
		if encrypted {
			return nil, true, nil
		}
		if flags&v4FlagDataLength != 0 {
			if err := take(4); err != nil {
				return nil, false, err
			}
		}
		if flags&v4FlagUnsync != 0 {
			p = removeUnsync(p)
		}
	}

	if compressed {
		p, err = inflate(p)
		if err != nil {
			return nil, false, err
		}
	}
	return p, false, nil
}

func inflate(p []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, codec.MaxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(out) > codec.MaxDecodedSize {
		return nil, codec.ErrTooLarge
	}
	return out, nil
}

func decodeFrame(id string, p []byte) (Frame, error) {
	f := Frame{ID: id, Data: p}
	switch {
	case id == "TXXX":
		enc, rest, err := encoding(p)
		if err != nil {
			return f, err
		}
		parts, err := decodeStrings(enc, rest)
		if err != nil {
			return f, err
		}
		if len(parts) > 0 {
			f.Description, f.Text = parts[0], parts[1:]
		}
	case id[0] == 'T':
		enc, rest, err := encoding(p)
		if err != nil {
			return f, err
		}
		if f.Text, err = decodeStrings(enc, rest); err != nil {
			return f, err
		}
	case id == "WXXX":
		enc, rest, err := encoding(p)
		if err != nil {
			return f, err
		}
		desc, url := cut(enc, rest)
		if f.Description, err = decodeText(enc, desc); err != nil {
			return f, err
		}
		f.URL, err = decodeText(EncodingISO88591, trimNul(url))
		if err != nil {
			return f, err
		}
	case id[0] == 'W':
		url, err := decodeText(EncodingISO88591, trimNul(p))
		if err != nil {
			return f, err
		}
		f.URL = url
	case id == "COMM" || id == "USLT":
		enc, rest, err := encoding(p)
		if err != nil {
			return f, err
		}
		if len(rest) < 3 {
			return f, ErrTruncated
		}
		f.Language = string(rest[:3])
		desc, text := cut(enc, rest[3:])
		if f.Description, err = decodeText(enc, desc); err != nil {
			return f, err
		}
		value, err := decodeText(enc, trimTerminator(enc, text))
		if err != nil {
			return f, err
		}
		f.Text = []string{value}
	case id == "PRIV":
		owner, data, found := bytes.Cut(p, []byte{0})
		if !found {
			return f, fmt.Errorf("%w: PRIV without owner terminator", ErrMalformed)
		}
		o, err := decodeText(EncodingISO88591, owner)
		if err != nil {
			return f, err
		}
		f.Owner, f.Data = o, data
	}
	return f, nil
}

func encoding(p []byte) (byte, []byte, error) {
	if len(p) == 0 {
		return 0, nil, ErrTruncated
	}
	if p[0] > EncodingUTF8 {
		return 0, nil, fmt.Errorf("%w: unknown text encoding %d", ErrMalformed, p[0])
	}
	return p[0], p[1:], nil
}

func wide(enc byte) bool { return enc == EncodingUTF16 || enc == EncodingUTF16BE }

// cut splits b at the first string terminator of enc.
func cut(enc byte, b []byte) (before, after []byte) {
	if !wide(enc) {
		before, after, _ = bytes.Cut(b, []byte{0})
		return before, after
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return b[:i], b[i+2:]
		}
	}
	return b, nil
}

func trimTerminator(enc byte, b []byte) []byte {
	if wide(enc) {
		if n := len(b); n >= 2 && n%2 == 0 && b[n-2] == 0 && b[n-1] == 0 {
			return b[:n-2]
		}
		return b
	}
	return trimNul(b)
}

func trimNul(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}

// decodeStrings decodes a list of terminated strings. A trailing
// terminator does not produce an empty value.
func decodeStrings(enc byte, b []byte) ([]string, error) {
	var out []string
	for len(b) > 0 {
		var s []byte
		s, b = cut(enc, b)
		v, err := decodeText(enc, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeText(enc byte, b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	var (
		out []byte
		err error
	)
	switch enc {
	case EncodingISO88591:
		out, err = charmap.ISO8859_1.NewDecoder().Bytes(b)
	case EncodingUTF16:
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(b)
	case EncodingUTF16BE:
		out, err = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	case EncodingUTF8:
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: invalid UTF-8", ErrMalformed)
		}
		out = b
	default:
		return "", fmt.Errorf("%w: unknown text encoding %d", ErrMalformed, enc)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(out), nil
}

func synchsafe(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

// removeUnsync reverses unsynchronisation: every 0xFF 0x00 becomes 0xFF.
func removeUnsync(b []byte) []byte {
	if !bytes.Contains(b, []byte{0xff, 0x00}) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xff && i+1 < len(b) && b[i+1] == 0x00 {
			i++
		}
	}
	return out
}

func validFrameID(id string) bool {
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
