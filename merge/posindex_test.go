package merge

import "testing"

func buildThreeInstState(t *testing.T) *State {
	t.Helper()
	var s State
	s.Init()
	s.AppendAdd([]byte("ab"))      // position 0, size 2
	s.AppendRun(3, 'x')            // position 2, size 3
	s.AppendCopy(CopyModeSource, 0, 4) // position 5, size 4
	return &s
}

func TestFindLocatesEachSpan(t *testing.T) {
	s := buildThreeInstState(t)

	tests := []struct {
		offset uint64
		want   int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 1},
		{5, 2},
		{8, 2},
	}

	for _, tt := range tests {
		got, err := Find(s, tt.offset)
		if err != nil {
			t.Fatalf("Find(%d) returned error: %v", tt.offset, err)
		}
		if got != tt.want {
			t.Errorf("Find(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestFindRejectsOutOfRange(t *testing.T) {
	s := buildThreeInstState(t)

	if _, err := Find(s, s.Length); err == nil {
		t.Fatal("expected error when offset equals state length")
	}
	if _, err := Find(s, s.Length+100); err == nil {
		t.Fatal("expected error when offset exceeds state length")
	}
}

func TestFindSingleInstruction(t *testing.T) {
	var s State
	s.Init()
	s.AppendAdd([]byte("z"))

	got, err := Find(&s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}
