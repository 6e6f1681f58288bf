package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// GetMatchHistoryRequest asks the coordinator for a page of a player's
// match history, continuing from a previous response's cursor.
type GetMatchHistoryRequest struct {
	AccountID       uint32
	ContinueCursor  uint64
}

func (m *GetMatchHistoryRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.AccountID))
	if m.ContinueCursor != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, m.ContinueCursor)
	}
	return b, nil
}

func (m *GetMatchHistoryRequest) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming account_id: %w", protowire.ParseError(n))
			}
			m.AccountID = uint32(v)
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming continue_cursor: %w", protowire.ParseError(n))
			}
			m.ContinueCursor = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("protocol: skipping field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

// MatchHistoryEntry is one row of a player's history as the coordinator
// reports it, before it's merged with whatever is already stored.
type MatchHistoryEntry struct {
	MatchID   uint64
	HeroID    uint32
	StartTime uint32
	PlayerTeam uint32
	Won       bool
}

func (e *MatchHistoryEntry) unmarshal(data []byte) error {
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
			e.MatchID = v
		case 2:
			e.HeroID = uint32(v)
		case 3:
			e.StartTime = uint32(v)
		case 4:
			e.PlayerTeam = uint32(v)
		case 5:
			e.Won = v != 0
		}
	}
	return nil
}

// GetMatchHistoryResponse carries one page of match history entries plus
// the cursor to request the next page with, when there is one.
type GetMatchHistoryResponse struct {
	Result         CoordinatorResult
	Matches        []MatchHistoryEntry
	ContinueCursor uint64
}

func (m *GetMatchHistoryResponse) Marshal() ([]byte, error) {
	return nil, fmt.Errorf("protocol: GetMatchHistoryResponse is not sent by this gateway")
}

func (m *GetMatchHistoryResponse) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming result: %w", protowire.ParseError(n))
			}
			m.Result = CoordinatorResult(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming match entry: %w", protowire.ParseError(n))
			}
			var e MatchHistoryEntry
			if err := e.unmarshal(v); err != nil {
				return fmt.Errorf("protocol: decoding match history entry: %w", err)
			}
			m.Matches = append(m.Matches, e)
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming continue_cursor: %w", protowire.ParseError(n))
			}
			m.ContinueCursor = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("protocol: skipping field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}
