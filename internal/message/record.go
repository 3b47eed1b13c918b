package message

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/roach88/msgledger/internal/ledger"
)

// Record layout, little-endian:
//
//	[0:8)    discriminator  sha256("account:Message")[:8]
//	[8:40)   author         32-byte public key
//	[40:48)  timestamp      int64
//	[48:52)  content length uint32
//	[52:..)  content        UTF-8 bytes
//
// The rest of the account's fixed space is zero padding.
const (
	discriminatorSize = 8
	authorSize        = 32
	timestampSize     = 8
	lengthPrefixSize  = 4

	// HeaderSize is the bytes a record needs besides its content.
	HeaderSize = discriminatorSize + authorSize + timestampSize + lengthPrefixSize
)

var discriminator = func() [discriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:Message"))
	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])
	return d
}()

// Record is a message as persisted in its account.
type Record struct {
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

// Capacity returns the content bytes an account of the given space can hold.
func Capacity(space int64) int64 {
	return space - HeaderSize
}

// EncodedSize returns the bytes a record with content occupies.
func EncodedSize(content string) int64 {
	return HeaderSize + int64(len(content))
}

// Encode serializes a record.
func Encode(rec Record) ([]byte, error) {
	author, err := ledger.ParsePublicKey(rec.Author)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	buf := make([]byte, 0, EncodedSize(rec.Content))
	buf = append(buf, discriminator[:]...)
	buf = append(buf, author[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(rec.Timestamp))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(rec.Content)))
	buf = append(buf, rec.Content...)
	return buf, nil
}

// Decode parses a record from account data, ignoring trailing padding.
func Decode(data []byte) (Record, error) {
	if len(data) < HeaderSize {
		return Record{}, fmt.Errorf("decode record: %d bytes is shorter than the header", len(data))
	}
	if !bytes.Equal(data[:discriminatorSize], discriminator[:]) {
		return Record{}, fmt.Errorf("decode record: discriminator mismatch")
	}

	var author ledger.PublicKey
	off := discriminatorSize
	copy(author[:], data[off:off+authorSize])
	off += authorSize

	ts := int64(binary.LittleEndian.Uint64(data[off : off+timestampSize]))
	off += timestampSize

	n := int(binary.LittleEndian.Uint32(data[off : off+lengthPrefixSize]))
	off += lengthPrefixSize
	if n > len(data)-off {
		return Record{}, fmt.Errorf("decode record: content length %d overruns %d bytes", n, len(data)-off)
	}
	content := data[off : off+n]
	if !utf8.Valid(content) {
		return Record{}, fmt.Errorf("decode record: content is not valid UTF-8")
	}

	return Record{
		Author:    author.String(),
		Timestamp: ts,
		Content:   string(content),
	}, nil
}
