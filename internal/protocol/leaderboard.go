package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// GetLeaderboardRequest asks the coordinator for a region's ranked
// leaderboard, optionally scoped to a single hero.
type GetLeaderboardRequest struct {
	Region int32
	HeroID uint32 // zero means the overall, not hero-scoped, leaderboard
}

func (m *GetLeaderboardRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Region))
	if m.HeroID != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.HeroID))
	}
	return b, nil
}

func (m *GetLeaderboardRequest) Unmarshal(data []byte) error {
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
				return fmt.Errorf("protocol: consuming region: %w", protowire.ParseError(n))
			}
			m.Region = int32(v)
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming hero_id: %w", protowire.ParseError(n))
			}
			m.HeroID = uint32(v)
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

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	AccountID uint64
	Rank      uint32
	RankedBadgeLevel uint32
	Wins      uint32
}

func (e *LeaderboardEntry) unmarshal(data []byte) error {
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
			e.AccountID = v
		case 2:
			e.Rank = uint32(v)
		case 3:
			e.RankedBadgeLevel = uint32(v)
		case 4:
			e.Wins = uint32(v)
		}
	}
	return nil
}

// GetLeaderboardResponse carries the ranked entries, already ordered by
// rank by the coordinator.
type GetLeaderboardResponse struct {
	Entries []LeaderboardEntry
}

func (m *GetLeaderboardResponse) Marshal() ([]byte, error) {
	return nil, fmt.Errorf("protocol: GetLeaderboardResponse is not sent by this gateway")
}

func (m *GetLeaderboardResponse) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming entry: %w", protowire.ParseError(n))
			}
			var e LeaderboardEntry
			if err := e.unmarshal(v); err != nil {
				return fmt.Errorf("protocol: decoding leaderboard entry: %w", err)
			}
			m.Entries = append(m.Entries, e)
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return fmt.Errorf("protocol: skipping field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return nil
}
