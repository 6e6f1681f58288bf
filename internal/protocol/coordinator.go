package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// CoordinatorResult mirrors the small result enum the coordinator returns
// on metadata/spectate calls. Only the values this gateway branches on
// are modeled.
type CoordinatorResult int32

const (
	ResultUnspecified CoordinatorResult = 0
	ResultSuccess     CoordinatorResult = 1
	ResultFailure     CoordinatorResult = 2
)

// GetMatchMetaDataRequest asks the coordinator for a match's salts.
type GetMatchMetaDataRequest struct {
	MatchID uint64
}

func (m *GetMatchMetaDataRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, m.MatchID)
	return b, nil
}

func (m *GetMatchMetaDataRequest) Unmarshal(data []byte) error {
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
				return fmt.Errorf("protocol: consuming match_id: %w", protowire.ParseError(n))
			}
			m.MatchID = v
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

// GetMatchMetaDataResponse carries the salts triple.
type GetMatchMetaDataResponse struct {
	Result       CoordinatorResult
	ClusterID    uint32
	MetadataSalt uint64
	ReplaySalt   uint64
}

func (m *GetMatchMetaDataResponse) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Result))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ClusterID))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, m.MetadataSalt)
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, m.ReplaySalt)
	return b, nil
}

func (m *GetMatchMetaDataResponse) Unmarshal(data []byte) error {
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
			m.Result = CoordinatorResult(v)
		case 2:
			m.ClusterID = uint32(v)
		case 3:
			m.MetadataSalt = v
		case 4:
			m.ReplaySalt = v
		}
	}
	return nil
}

// Succeeded reports whether the response represents a usable salts row.
func (m *GetMatchMetaDataResponse) Succeeded() bool {
	return m.Result == ResultSuccess && m.ClusterID != 0 && m.MetadataSalt != 0
}

// SpectateLobbyRequest asks a bot to join a live match as a spectator.
type SpectateLobbyRequest struct {
	MatchID       uint64
	ClientVersion uint32
	Platform      string
}

func (m *SpectateLobbyRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, m.MatchID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ClientVersion))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, m.Platform)
	return b, nil
}

func (m *SpectateLobbyRequest) Unmarshal(data []byte) error {
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
				return fmt.Errorf("protocol: consuming match_id: %w", protowire.ParseError(n))
			}
			m.MatchID = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming client_version: %w", protowire.ParseError(n))
			}
			m.ClientVersion = uint32(v)
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming platform: %w", protowire.ParseError(n))
			}
			m.Platform = v
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

// SpectateLobbyResponse reports whether the lobby has an active demo.
type SpectateLobbyResponse struct {
	Result      CoordinatorResult
	DemoAvailable bool
}

func (m *SpectateLobbyResponse) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Result))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	if m.DemoAvailable {
		b = protowire.AppendVarint(b, 1)
	} else {
		b = protowire.AppendVarint(b, 0)
	}
	return b, nil
}

func (m *SpectateLobbyResponse) Unmarshal(data []byte) error {
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
			m.Result = CoordinatorResult(v)
		case 2:
			m.DemoAvailable = v != 0
		}
	}
	return nil
}

// RawResponse captures a coordinator reply's bytes unparsed. Used for
// payloads this package decodes through a specialized path of their own
// (the snappy-framed active matches list, see DecodeActiveMatches) rather
// than field-by-field in Unmarshal.
type RawResponse struct {
	Data []byte
}

func (m *RawResponse) Marshal() ([]byte, error) { return m.Data, nil }

func (m *RawResponse) Unmarshal(data []byte) error {
	m.Data = append([]byte(nil), data...)
	return nil
}

// PartyActionRequest is the one shape every party call (join, leave,
// mark ready, start) uses: a party id string plus an account id.
type PartyActionRequest struct {
	PartyID   string
	AccountID uint64
}

func (m *PartyActionRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.PartyID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, m.AccountID)
	return b, nil
}

func (m *PartyActionRequest) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming party_id: %w", protowire.ParseError(n))
			}
			m.PartyID = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming account_id: %w", protowire.ParseError(n))
			}
			m.AccountID = v
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
