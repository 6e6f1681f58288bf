package protocol

import (
	"fmt"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

// activeMatchesHeaderLen is the length of the fixed header the coordinator
// prepends before the snappy-compressed active-matches payload. The header
// itself isn't part of the snappy stream and is skipped unread.
const activeMatchesHeaderLen = 7

// ActiveMatch is a single row of the live active-matches list.
type ActiveMatch struct {
	MatchID           uint64
	StartTime         uint32
	RegionMode        uint32
	NumPlayers        uint32
	PlayerAccountIDs  []uint32
}

func (m *ActiveMatch) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, m.MatchID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.StartTime))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.RegionMode))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.NumPlayers))
	for _, id := range m.PlayerAccountIDs {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(id))
	}
	return b, nil
}

func (m *ActiveMatch) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("protocol: skipping field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case 1:
			m.MatchID = v
		case 2:
			m.StartTime = uint32(v)
		case 3:
			m.RegionMode = uint32(v)
		case 4:
			m.NumPlayers = uint32(v)
		case 5:
			m.PlayerAccountIDs = append(m.PlayerAccountIDs, uint32(v))
		}
	}
	return nil
}

// GetActiveMatchesRequest carries no fields; the coordinator returns the
// full watch-tab list regardless.
type GetActiveMatchesRequest struct{}

func (m *GetActiveMatchesRequest) Marshal() ([]byte, error) { return nil, nil }
func (m *GetActiveMatchesRequest) Unmarshal(_ []byte) error { return nil }

// ActiveMatchList is the decoded, length-prefixed repeated field the
// coordinator serves. It has no wire envelope of its own: callers get a
// bare sequence of length-delimited ActiveMatch entries after snappy
// decompression.
type ActiveMatchList struct {
	Matches []ActiveMatch
}

// DecodeActiveMatches strips the fixed header, snappy-decompresses the
// remainder, and parses the resulting stream as a sequence of
// length-delimited ActiveMatch protobuf messages.
func DecodeActiveMatches(raw []byte) (*ActiveMatchList, error) {
	if len(raw) < activeMatchesHeaderLen {
		return nil, fmt.Errorf("protocol: active matches payload shorter than header (%d bytes)", len(raw))
	}

	decoded, err := snappy.Decode(nil, raw[activeMatchesHeaderLen:])
	if err != nil {
		return nil, fmt.Errorf("protocol: snappy decoding active matches: %w", err)
	}

	list := &ActiveMatchList{}
	for len(decoded) > 0 {
		entryLen, n := protowire.ConsumeVarint(decoded)
		if n < 0 {
			return nil, fmt.Errorf("protocol: consuming entry length: %w", protowire.ParseError(n))
		}
		decoded = decoded[n:]

		if uint64(len(decoded)) < entryLen {
			return nil, fmt.Errorf("protocol: truncated active match entry, want %d bytes, have %d", entryLen, len(decoded))
		}

		var m ActiveMatch
		if err := m.Unmarshal(decoded[:entryLen]); err != nil {
			return nil, fmt.Errorf("protocol: decoding active match entry: %w", err)
		}
		list.Matches = append(list.Matches, m)
		decoded = decoded[entryLen:]
	}

	return list, nil
}
