package shared

import "testing"

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("GenerateID returned empty string")
	}
	if a == b {
		t.Errorf("expected unique IDs, got %s twice", a)
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]int{"tracks": 3}

	compact, err := MarshalJSON(data, false)
	if err != nil {
		t.Fatalf("compact marshal failed: %v", err)
	}
	if string(compact) != `{"tracks":3}` {
		t.Errorf("unexpected compact output: %s", compact)
	}

	pretty, err := MarshalJSON(data, true)
	if err != nil {
		t.Fatalf("pretty marshal failed: %v", err)
	}
	if len(pretty) <= len(compact) {
		t.Error("pretty output should be longer than compact output")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a == "" || b == "" {
		t.Fatal("GenerateState returned empty string")
	}
	if a == b {
		t.Errorf("expected unique state tokens, got %s twice", a)
	}
}
