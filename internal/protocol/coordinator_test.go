package protocol

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendUnknownVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func TestGetMatchMetaDataRequest_RoundTrip(t *testing.T) {
	want := &GetMatchMetaDataRequest{MatchID: 30742999}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &GetMatchMetaDataRequest{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.MatchID != want.MatchID {
		t.Errorf("MatchID = %d, want %d", got.MatchID, want.MatchID)
	}
}

func TestGetMatchMetaDataResponse_RoundTrip(t *testing.T) {
	want := &GetMatchMetaDataResponse{
		Result:       ResultSuccess,
		ClusterID:    123,
		MetadataSalt: 987654321,
		ReplaySalt:   123456789,
	}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &GetMatchMetaDataResponse{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.Succeeded() {
		t.Error("expected Succeeded() to be true for a full salts response")
	}
}

func TestGetMatchMetaDataResponse_Succeeded(t *testing.T) {
	tests := []struct {
		name string
		resp GetMatchMetaDataResponse
		want bool
	}{
		{"success with salts", GetMatchMetaDataResponse{Result: ResultSuccess, ClusterID: 1, MetadataSalt: 1}, true},
		{"failure result", GetMatchMetaDataResponse{Result: ResultFailure, ClusterID: 1, MetadataSalt: 1}, false},
		{"success but zero cluster", GetMatchMetaDataResponse{Result: ResultSuccess, ClusterID: 0, MetadataSalt: 1}, false},
		{"success but zero salt", GetMatchMetaDataResponse{Result: ResultSuccess, ClusterID: 1, MetadataSalt: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpectateLobbyRequest_RoundTrip(t *testing.T) {
	want := &SpectateLobbyRequest{MatchID: 42, ClientVersion: 6000, Platform: "linux"}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &SpectateLobbyRequest{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSpectateLobbyResponse_RoundTrip(t *testing.T) {
	want := &SpectateLobbyResponse{Result: ResultSuccess, DemoAvailable: true}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &SpectateLobbyResponse{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPartyActionRequest_RoundTrip(t *testing.T) {
	want := &PartyActionRequest{PartyID: "party-123", AccountID: 99887766}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &PartyActionRequest{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = appendUnknownVarintField(b, 99, 42)
	b = appendUnknownVarintField(b, 1, 30742999)

	got := &GetMatchMetaDataRequest{}
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.MatchID != 30742999 {
		t.Errorf("MatchID = %d, want 30742999", got.MatchID)
	}
}
