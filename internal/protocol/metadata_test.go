package protocol

import "testing"

func TestMatchMetadata_RoundTrip(t *testing.T) {
	want := &MatchMetadata{
		MatchDetails: MatchMetadataContents{
			MatchID:     42000000,
			DurationS:   1800,
			WinningTeam: 1,
		},
	}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &MatchMetadata{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.MatchDetails != want.MatchDetails {
		t.Errorf("MatchDetails = %+v, want %+v", got.MatchDetails, want.MatchDetails)
	}
}

func TestMatchMetadata_EmptyDetails(t *testing.T) {
	want := &MatchMetadata{}

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := &MatchMetadata{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.MatchDetails.MatchID != 0 {
		t.Errorf("MatchID = %d, want 0", got.MatchDetails.MatchID)
	}
}
