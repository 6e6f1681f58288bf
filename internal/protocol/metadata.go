package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MatchMetadataContents is the inner message carried by a resolved
// metadata blob's match_details field. Only the handful of scalar
// fields handlers actually surface are modeled; every other field is
// dropped on decode, so re-marshaling writes only these three.
type MatchMetadataContents struct {
	MatchID     uint64
	DurationS   uint32
	WinningTeam uint32
}

func (m *MatchMetadataContents) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, m.MatchID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.DurationS))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.WinningTeam))
	return b, nil
}

// Unmarshal decodes the three scalar fields this gateway reads; any
// other field present in the blob (the real message carries dozens) is
// skipped rather than preserved, since nothing here re-serializes a
// decoded MatchMetadataContents back to storage.
func (m *MatchMetadataContents) Unmarshal(data []byte) error {
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
			m.DurationS = uint32(v)
		case 3:
			m.WinningTeam = uint32(v)
		}
	}
	return nil
}

// MatchMetadata is the outer envelope a decompressed metadata blob
// decodes to; match_details carries the contents message.
type MatchMetadata struct {
	MatchDetails MatchMetadataContents
}

func (m *MatchMetadata) Marshal() ([]byte, error) {
	inner, err := m.MatchDetails.Marshal()
	if err != nil {
		return nil, err
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	return b, nil
}

func (m *MatchMetadata) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("protocol: consuming match_details: %w", protowire.ParseError(n))
			}
			if err := m.MatchDetails.Unmarshal(inner); err != nil {
				return fmt.Errorf("protocol: decoding match_details: %w", err)
			}
			data = data[n:]
			continue
		}

		n := protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return fmt.Errorf("protocol: skipping field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return nil
}
