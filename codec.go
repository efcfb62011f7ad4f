// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/spaolacci/murmur3"
)

func init() {
	// Kwargs values and signal results travel as interface values, so
	// their concrete types must be registered on both sides of the
	// bridge. Anything beyond these is registered by the package that
	// defines it.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register("")
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
	gob.Register([]string{})
	gob.Register([]int{})
	gob.Register([]float64{})
}

// A recordKind tags the payload type of a persisted record so that a
// funcs artifact can never be decoded as a kwargs artifact or a
// completion signal.
type recordKind uint8

const (
	kindFuncs recordKind = 1 + iota
	kindKwargs
	kindSignal
)

var kindNames = [...]string{
	kindFuncs:  "funcs",
	kindKwargs: "kwargs",
	kindSignal: "signal",
}

func (k recordKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Persisted artifacts are framed records: a 4-byte magic, a version
// byte, a kind byte, the payload length and the murmur3-64 hash of the
// payload (both little-endian uint64), followed by the gob-encoded
// payload. The frame makes truncation and corruption detectable and
// leaves room for future format revisions.
var recordMagic = [4]byte{'s', 'f', 'r', '1'}

const (
	recordVersion    = 1
	recordHeaderSize = 4 + 1 + 1 + 8 + 8

	// maxRecordPayload bounds a record's payload length. Descriptors
	// and signals are small; a length beyond this is a corrupt or
	// hostile frame, and must be rejected before any allocation.
	maxRecordPayload = 1 << 30
)

// writeRecord frames and writes a single record, returning the number
// of bytes written.
func writeRecord(w io.Writer, kind recordKind, v interface{}) (int64, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(v); err != nil {
		return 0, errors.E(fmt.Sprintf("encode %s record", kind), err)
	}
	p := payload.Bytes()
	var hdr [recordHeaderSize]byte
	copy(hdr[:4], recordMagic[:])
	hdr[4] = recordVersion
	hdr[5] = byte(kind)
	binary.LittleEndian.PutUint64(hdr[6:14], uint64(len(p)))
	binary.LittleEndian.PutUint64(hdr[14:22], murmur3.Sum64(p))
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.Write(p); err != nil {
		return 0, err
	}
	return int64(recordHeaderSize + len(p)), nil
}

// readRecord reads a single framed record of the given kind, decoding
// its payload into v. Records with mismatched framing or corrupted
// payloads are rejected with errors of kind errors.Invalid.
func readRecord(r io.Reader, kind recordKind, v interface{}) error {
	var hdr [recordHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return errors.E(errors.Invalid, "short record header", err)
	}
	if !bytes.Equal(hdr[:4], recordMagic[:]) {
		return errors.E(errors.Invalid, "bad record magic")
	}
	if hdr[4] != recordVersion {
		return errors.E(errors.Invalid, fmt.Sprintf("unsupported record version %d", hdr[4]))
	}
	if got := recordKind(hdr[5]); got != kind {
		return errors.E(errors.Invalid, fmt.Sprintf("record kind mismatch: have %s, want %s", got, kind))
	}
	n := binary.LittleEndian.Uint64(hdr[6:14])
	sum := binary.LittleEndian.Uint64(hdr[14:22])
	if n > maxRecordPayload {
		return errors.E(errors.Invalid, fmt.Sprintf("%s record length %d exceeds maximum %d", kind, n, maxRecordPayload))
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(r, p); err != nil {
		return errors.E(errors.Invalid, "short record payload", err)
	}
	if murmur3.Sum64(p) != sum {
		return errors.E(errors.Invalid, fmt.Sprintf("%s record checksum mismatch", kind))
	}
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(v); err != nil {
		return errors.E(errors.Invalid, fmt.Sprintf("decode %s record", kind), err)
	}
	return nil
}
