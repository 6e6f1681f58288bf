package protocol

import (
	"reflect"
	"testing"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

func encodeActiveMatchesPayload(t *testing.T, matches []ActiveMatch) []byte {
	t.Helper()

	var stream []byte
	for _, m := range matches {
		b, err := m.Marshal()
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		stream = protowire.AppendVarint(stream, uint64(len(b)))
		stream = append(stream, b...)
	}

	compressed := snappy.Encode(nil, stream)
	header := make([]byte, activeMatchesHeaderLen)
	return append(header, compressed...)
}

func TestDecodeActiveMatches(t *testing.T) {
	want := []ActiveMatch{
		{MatchID: 1, StartTime: 100, RegionMode: 1, NumPlayers: 12},
		{MatchID: 2, StartTime: 200, RegionMode: 2, NumPlayers: 10},
	}

	raw := encodeActiveMatchesPayload(t, want)

	got, err := DecodeActiveMatches(raw)
	if err != nil {
		t.Fatalf("DecodeActiveMatches() error = %v", err)
	}
	if len(got.Matches) != len(want) {
		t.Fatalf("len(Matches) = %d, want %d", len(got.Matches), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(got.Matches[i], want[i]) {
			t.Errorf("Matches[%d] = %+v, want %+v", i, got.Matches[i], want[i])
		}
	}
}

func TestDecodeActiveMatches_EmptyList(t *testing.T) {
	raw := encodeActiveMatchesPayload(t, nil)

	got, err := DecodeActiveMatches(raw)
	if err != nil {
		t.Fatalf("DecodeActiveMatches() error = %v", err)
	}
	if len(got.Matches) != 0 {
		t.Errorf("len(Matches) = %d, want 0", len(got.Matches))
	}
}

func TestDecodeActiveMatches_ShortPayload(t *testing.T) {
	if _, err := DecodeActiveMatches([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for payload shorter than header")
	}
}
