package gitmigrate

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zlib"
)

const packHeaderSize = 12

// Pack entry type codes.
const (
	packTypeCommit   = 1
	packTypeTree     = 2
	packTypeBlob     = 3
	packTypeTag      = 4
	packTypeOfsDelta = 6
	packTypeRefDelta = 7
)

var packTypeNames = map[int]string{
	packTypeCommit: "commit",
	packTypeTree:   "tree",
	packTypeBlob:   "blob",
	packTypeTag:    "tag",
}

// packSource reads objects out of <gitDir>/objects/pack/*.pack, resolving
// OFS and REF delta chains. Deltas whose base lives outside the pack are
// resolved through the fallback lookup (usually the loose source).
type packSource struct {
	objects map[string]*foreignObject
}

type lookupFunc func(id string) (*foreignObject, error)

func newPackSource(gitDir string, fallback lookupFunc) (*packSource, error) {
	packDir := filepath.Join(gitDir, "objects", "pack")
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &packSource{objects: map[string]*foreignObject{}}, nil
		}
		return nil, fmt.Errorf("pack dir: %w", err)
	}

	s := &packSource{objects: make(map[string]*foreignObject)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pack") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(packDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read pack %s: %w", e.Name(), err)
		}
		if err := s.loadPack(data, fallback); err != nil {
			return nil, fmt.Errorf("pack %s: %w", e.Name(), err)
		}
	}
	return s, nil
}

func (s *packSource) ids() ([]string, error) {
	out := make([]string, 0, len(s.objects))
	for id := range s.objects {
		out = append(out, id)
	}
	return out, nil
}

func (s *packSource) read(id string) (*foreignObject, error) {
	obj, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("packed object %s not found", id)
	}
	return obj, nil
}

// rawEntry is one undecoded pack entry before delta resolution.
type rawEntry struct {
	typeCode   int
	data       []byte // inflated payload, or delta instructions
	baseOffset int64  // OFS_DELTA target, 0 otherwise
	baseID     string // REF_DELTA target, "" otherwise
}

// loadPack parses one pack stream and folds its resolved objects into the
// source.
func (s *packSource) loadPack(data []byte, fallback lookupFunc) error {
	if len(data) < packHeaderSize+sha1.Size {
		return fmt.Errorf("pack too short: %d bytes", len(data))
	}

	payload := data[:len(data)-sha1.Size]
	trailer := data[len(data)-sha1.Size:]
	sum := sha1.Sum(payload)
	if !bytes.Equal(sum[:], trailer) {
		return fmt.Errorf("pack checksum mismatch")
	}

	if string(payload[:4]) != "PACK" {
		return fmt.Errorf("bad pack magic %q", payload[:4])
	}
	version := binary.BigEndian.Uint32(payload[4:8])
	if version != 2 {
		return fmt.Errorf("unsupported pack version %d", version)
	}
	count := binary.BigEndian.Uint32(payload[8:12])

	entries := make(map[int64]*rawEntry, count)
	offset := int64(packHeaderSize)
	for i := uint32(0); i < count; i++ {
		entryStart := offset
		typeCode, size, n, err := decodeEntryHeader(payload[offset:])
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		offset += int64(n)

		entry := &rawEntry{typeCode: typeCode}
		switch typeCode {
		case packTypeOfsDelta:
			distance, n, err := decodeOfsDeltaDistance(payload[offset:])
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			offset += int64(n)
			entry.baseOffset = entryStart - int64(distance)
			if entry.baseOffset < packHeaderSize {
				return fmt.Errorf("entry %d: ofs-delta base before pack start", i)
			}
		case packTypeRefDelta:
			if int(offset)+sha1.Size > len(payload) {
				return fmt.Errorf("entry %d: truncated ref-delta base", i)
			}
			entry.baseID = hex.EncodeToString(payload[offset : offset+sha1.Size])
			offset += sha1.Size
		case packTypeCommit, packTypeTree, packTypeBlob, packTypeTag:
		default:
			return fmt.Errorf("entry %d: unknown type code %d", i, typeCode)
		}

		inflated, consumed, err := inflateAt(payload, offset)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if uint64(len(inflated)) != size {
			return fmt.Errorf("entry %d: size mismatch header=%d decoded=%d", i, size, len(inflated))
		}
		entry.data = inflated
		offset += consumed

		entries[entryStart] = entry
	}
	if int(offset) != len(payload) {
		return fmt.Errorf("pack has %d trailing undecoded bytes", len(payload)-int(offset))
	}

	// Resolve delta chains. resolved memoizes by pack offset.
	resolved := make(map[int64]*foreignObject, len(entries))
	var resolveAt func(off int64) (*foreignObject, error)
	resolveAt = func(off int64) (*foreignObject, error) {
		if obj, ok := resolved[off]; ok {
			return obj, nil
		}
		entry, ok := entries[off]
		if !ok {
			return nil, fmt.Errorf("no entry at offset %d", off)
		}

		var obj *foreignObject
		switch entry.typeCode {
		case packTypeOfsDelta, packTypeRefDelta:
			var base *foreignObject
			var err error
			if entry.typeCode == packTypeOfsDelta {
				base, err = resolveAt(entry.baseOffset)
			} else {
				base, err = s.lookupBase(entry.baseID, fallback)
			}
			if err != nil {
				return nil, fmt.Errorf("delta base: %w", err)
			}
			restored, err := applyDelta(base.Data, entry.data)
			if err != nil {
				return nil, err
			}
			obj = &foreignObject{
				ID:   hashGitObject(base.Type, restored),
				Type: base.Type,
				Data: restored,
			}
		default:
			objType := packTypeNames[entry.typeCode]
			obj = &foreignObject{
				ID:   hashGitObject(objType, entry.data),
				Type: objType,
				Data: entry.data,
			}
		}
		resolved[off] = obj
		return obj, nil
	}

	for off := range entries {
		obj, err := resolveAt(off)
		if err != nil {
			return fmt.Errorf("resolve entry at %d: %w", off, err)
		}
		s.objects[obj.ID] = obj
	}
	return nil
}

func (s *packSource) lookupBase(id string, fallback lookupFunc) (*foreignObject, error) {
	if obj, ok := s.objects[id]; ok {
		return obj, nil
	}
	if fallback != nil {
		return fallback(id)
	}
	return nil, fmt.Errorf("base object %s not available", id)
}

// inflateAt decompresses one zlib stream starting at off and reports how
// many compressed bytes it consumed. bytes.Reader is a ByteReader, so the
// inflater reads exactly the stream and no further.
func inflateAt(payload []byte, off int64) ([]byte, int64, error) {
	sub := bytes.NewReader(payload[off:])
	zr, err := zlib.NewReader(sub)
	if err != nil {
		return nil, 0, fmt.Errorf("zlib reader: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		_ = zr.Close()
		return nil, 0, fmt.Errorf("decompress: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, 0, fmt.Errorf("close zlib stream: %w", err)
	}
	consumed := int64(len(payload)) - off - int64(sub.Len())
	return raw, consumed, nil
}

// decodeEntryHeader parses a pack entry's type and size varint.
func decodeEntryHeader(data []byte) (int, uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, fmt.Errorf("entry header truncated")
	}

	b := data[0]
	typeCode := int((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	consumed := 1

	for b&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, 0, fmt.Errorf("entry header truncated")
		}
		b = data[consumed]
		size |= uint64(b&0x7f) << shift
		shift += 7
		consumed++
	}

	return typeCode, size, consumed, nil
}

func decodeOfsDeltaDistance(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("ofs-delta distance truncated")
	}
	i := 0
	c := data[i]
	i++
	offset := uint64(c & 0x7f)
	for c&0x80 != 0 {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("ofs-delta distance truncated")
		}
		c = data[i]
		i++
		offset = ((offset + 1) << 7) | uint64(c&0x7f)
	}
	return offset, i, nil
}
