package appendlog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/wa-project/recorder/pkg/recorder"
)

// lengthPrefixSize is the fixed 4-byte little-endian length header that
// precedes every record.
const lengthPrefixSize = 4

// encodeRecord serializes an event as a length-prefixed record:
// uint32_le length || length bytes of canonical JSON.
func encodeRecord(e recorder.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("appendlog: serialize event %s: %w", e.EventID, err)
	}
	buf := make([]byte, lengthPrefixSize+len(payload))
	binary.LittleEndian.PutUint32(buf[:lengthPrefixSize], uint32(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	return buf, nil
}

// decodeRecord parses one length-prefixed record from payload bytes (the
// length prefix having already been consumed by the caller).
func decodeRecord(payload []byte) (recorder.Event, error) {
	var e recorder.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return recorder.Event{}, fmt.Errorf("appendlog: decode record: %w", err)
	}
	return e, nil
}

// scanResult is the outcome of scanning the data file's valid record
// prefix on open.
type scanResult struct {
	ValidLength  int64 // byte length of the valid, well-formed prefix
	RecordCount  uint64
}

// scanValidPrefix reads records from the start of f, stopping at the first
// short or truncated header/payload. It never errors on a torn tail: a torn
// tail is reported via ValidLength < file size, and the caller truncates.
func scanValidPrefix(f *os.File) (scanResult, error) {
	info, err := f.Stat()
	if err != nil {
		return scanResult{}, fmt.Errorf("appendlog: stat data file: %w", err)
	}
	size := info.Size()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return scanResult{}, fmt.Errorf("appendlog: seek to start: %w", err)
	}
	r := bufio.NewReader(f)

	var offset int64
	var count uint64
	header := make([]byte, lengthPrefixSize)
	for {
		n, err := io.ReadFull(r, header)
		if err != nil || n < lengthPrefixSize {
			break // short header: stop, prefix up to `offset` is valid
		}
		length := int64(binary.LittleEndian.Uint32(header))
		if offset+lengthPrefixSize+length > size {
			break // header claims bytes past EOF: torn tail
		}
		if _, err := io.CopyN(io.Discard, r, length); err != nil {
			break
		}
		offset += lengthPrefixSize + length
		count++
	}
	return scanResult{ValidLength: offset, RecordCount: count}, nil
}

// readAllValid reads every well-formed record from the first validLength
// bytes of f. Used by consumers that need to replay the full log (not
// needed by the hot append path, but exercised by invariant-checker
// integration and by tests).
func readAllValid(f *os.File, validLength int64) ([]recorder.Event, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("appendlog: seek to start: %w", err)
	}
	r := bufio.NewReader(io.LimitReader(f, validLength))

	var events []recorder.Event
	header := make([]byte, lengthPrefixSize)
	for {
		n, err := io.ReadFull(r, header)
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("appendlog: short header while replaying: %w", err)
		}
		length := binary.LittleEndian.Uint32(header)
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("appendlog: short payload while replaying: %w", err)
		}
		e, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
