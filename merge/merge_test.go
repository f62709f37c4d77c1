package merge

import (
	"errors"
	"testing"
)

// Scenario 1: ADD+ADD merge.
func TestMergeScenarioAddAdd(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendAdd([]byte("XY")) // A: M = "XY"
	input.AppendCopy(CopyModeSource, 0, 2) // B: T = copy all of M

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	requireSingleInst(t, out, KindAdd, 0, 2)
	if string(out.ArenaBytes(out.Inst(0).Addr, 2)) != "XY" {
		t.Fatalf("expected ADD payload XY, got %q", out.ArenaBytes(out.Inst(0).Addr, 2))
	}
	if out.Length != 2 {
		t.Fatalf("expected length 2, got %d", out.Length)
	}
}

// Scenario 2: COPY passthrough.
func TestMergeScenarioCopyPassthrough(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendCopy(CopyModeSource, 2, 4) // A: M = S[2:6]
	input.AppendAdd([]byte("ZZ"))
	input.AppendCopy(CopyModeTarget, 0, 2) // B: T = "ZZ" + T[0:2]

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if out.NumInsts() != 2 {
		t.Fatalf("expected 2 instructions, got %d", out.NumInsts())
	}
	add := out.Inst(0)
	if add.Kind != KindAdd || add.Position != 0 || add.Size != 2 {
		t.Fatalf("unexpected first instruction: %+v", add)
	}
	cp := out.Inst(1)
	if cp.Kind != KindCopy || cp.Mode != CopyModeTarget || cp.Addr != 0 || cp.Position != 2 || cp.Size != 2 {
		t.Fatalf("unexpected second instruction: %+v", cp)
	}
	if out.Length != 4 {
		t.Fatalf("expected length 4, got %d", out.Length)
	}
}

// Scenario 3: source-copy splitting across two source instructions.
func TestMergeScenarioSourceCopySplit(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendAdd([]byte("PQ"))         // M[0:2] = "PQ"
	source.AppendCopy(CopyModeSource, 0, 6) // M[2:8] = S[0:6]
	input.AppendCopy(CopyModeSource, 1, 5)  // T = M[1:6] = "Qabcd"

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if out.NumInsts() != 2 {
		t.Fatalf("expected 2 instructions (one per source instruction crossed), got %d", out.NumInsts())
	}

	add := out.Inst(0)
	if add.Kind != KindAdd || add.Position != 0 || add.Size != 1 {
		t.Fatalf("unexpected first instruction: %+v", add)
	}
	if string(out.ArenaBytes(add.Addr, 1)) != "Q" {
		t.Fatalf("expected ADD payload Q, got %q", out.ArenaBytes(add.Addr, 1))
	}

	cp := out.Inst(1)
	if cp.Kind != KindCopy || cp.Mode != CopyModeSource || cp.Addr != 0 || cp.Position != 1 || cp.Size != 4 {
		t.Fatalf("unexpected second instruction: %+v", cp)
	}
	if out.Length != 5 {
		t.Fatalf("expected length 5, got %d", out.Length)
	}
}

// Scenario 4: RUN translation.
func TestMergeScenarioRunTranslation(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendRun(5, 'x')               // M = "xxxxx"
	input.AppendCopy(CopyModeSource, 1, 3) // T = M[1:4] = "xxx"

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	requireSingleInst(t, out, KindRun, 0, 3)
	if b := out.ArenaBytes(out.Inst(0).Addr, 1)[0]; b != 'x' {
		t.Fatalf("expected repeat byte 'x', got %q", b)
	}
	if out.Length != 3 {
		t.Fatalf("expected length 3, got %d", out.Length)
	}
}

// Scenario 5: out-of-range source copy is rejected, no output produced.
func TestMergeScenarioOutOfRangeCopy(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendAdd([]byte("abcd")) // M length 4
	input.AppendCopy(CopyModeSource, 10, 1)

	out, err := MergeInputs(&source, &input)
	if err == nil {
		t.Fatal("expected error for out-of-range source copy")
	}
	if !errors.Is(err, ErrInvalidCopyOffset) {
		t.Fatalf("expected ErrInvalidCopyOffset, got %v", err)
	}
	if out != nil {
		t.Fatal("expected no output state on error")
	}
}

// Scenario 6: chained identity — merging an identity delta with an
// arbitrary delta and materializing against S must match applying the
// arbitrary delta directly (since M == S for an identity first delta).
func TestMergeScenarioChainedIdentity(t *testing.T) {
	src := []byte("abcdefgh")

	var identity, arbitrary State
	identity.Init()
	identity.AppendCopy(CopyModeSource, 0, uint32(len(src)))

	arbitrary.Init()
	arbitrary.AppendAdd([]byte("Z"))
	arbitrary.AppendCopy(CopyModeSource, 3, 3)
	arbitrary.AppendRun(2, 'Q')

	merged, err := MergeInputs(&identity, &arbitrary)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	gotViaMerge, err := Materialize(src, merged)
	if err != nil {
		t.Fatalf("materialize(merged) failed: %v", err)
	}
	wantDirect, err := Materialize(src, &arbitrary)
	if err != nil {
		t.Fatalf("materialize(arbitrary) failed: %v", err)
	}
	if string(gotViaMerge) != string(wantDirect) {
		t.Fatalf("merge(identity, B) applied to S = %q, want %q", gotViaMerge, wantDirect)
	}
}

// Boundary: input COPY spanning exactly one source instruction yields
// exactly one output instruction (already covered by scenario 4 above;
// this adds an ADD-backed case).
func TestBoundaryCopySpansOneSourceInstruction(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendAdd([]byte("abcdef"))
	input.AppendCopy(CopyModeSource, 1, 4)

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	requireSingleInst(t, out, KindAdd, 0, 4)
	if string(out.ArenaBytes(out.Inst(0).Addr, 4)) != "bcde" {
		t.Fatalf("unexpected payload %q", out.ArenaBytes(out.Inst(0).Addr, 4))
	}
}

// Boundary: input COPY spanning k source instructions yields exactly k
// output instructions whose sizes sum to the input's size.
func TestBoundaryCopySpansKSourceInstructions(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendAdd([]byte("aa"))   // M[0:2]
	source.AppendAdd([]byte("bb"))   // M[2:4]
	source.AppendAdd([]byte("cc"))   // M[4:6]
	input.AppendCopy(CopyModeSource, 0, 6)

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if out.NumInsts() != 3 {
		t.Fatalf("expected 3 output instructions, got %d", out.NumInsts())
	}
	var total uint32
	for i := 0; i < out.NumInsts(); i++ {
		total += out.Inst(i).Size
	}
	if total != 6 {
		t.Fatalf("expected total size 6, got %d", total)
	}
}

// Boundary: input COPY of size 1 at the last byte of a source RUN
// yields one RUN.
func TestBoundaryCopySizeOneAtRunTail(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendRun(4, 'm') // M = "mmmm", positions 0..3
	input.AppendCopy(CopyModeSource, 3, 1) // last byte only

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	requireSingleInst(t, out, KindRun, 0, 1)
}

// Boundary: empty input produces empty output.
func TestBoundaryEmptyInput(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()
	source.AppendAdd([]byte("whatever"))

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if out.NumInsts() != 0 || out.Length != 0 {
		t.Fatalf("expected empty output, got %d insts, length %d", out.NumInsts(), out.Length)
	}
}

// Boundary: a source delta that is a single identity COPY, merged with
// an input of all ADDs, must produce the input verbatim — no SOURCE
// copies remain to resolve.
func TestBoundaryIdentitySourceAllAddsInput(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendCopy(CopyModeSource, 0, 100)
	input.AppendAdd([]byte("hello"))
	input.AppendAdd([]byte("world"))

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if out.NumInsts() != 2 {
		t.Fatalf("expected 2 instructions, got %d", out.NumInsts())
	}
	for i := 0; i < out.NumInsts(); i++ {
		if out.Inst(i).Kind != KindAdd {
			t.Fatalf("instruction %d should remain an ADD, got %v", i, out.Inst(i).Kind)
		}
	}
}

// TestMergeTargetModeCopyPassthrough locks in the chosen behavior for
// TARGET-mode copies: they are propagated unchanged rather than
// resolved, since resolving a chained TARGET-mode copy against an outer
// source is not exercised anywhere upstream.
func TestMergeTargetModeCopyPassthrough(t *testing.T) {
	var source, input State
	source.Init()
	input.Init()

	source.AppendAdd([]byte("unused"))
	input.AppendCopy(CopyModeTargetWindow, 42, 7)

	out, err := MergeInputs(&source, &input)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	requireSingleInst(t, out, KindCopy, 0, 7)
	got := out.Inst(0)
	if got.Mode != CopyModeTargetWindow || got.Addr != 42 {
		t.Fatalf("TARGET-mode copy should pass through unchanged, got %+v", got)
	}
}

// TestMergeLengthPreservation is a lightweight stand-in for property P1
// across several hand-built merges: output.Length always equals
// input.Length.
func TestMergeLengthPreservation(t *testing.T) {
	cases := []func() (*State, *State){
		func() (*State, *State) {
			var s, i State
			s.Init()
			i.Init()
			s.AppendAdd([]byte("xy"))
			i.AppendCopy(CopyModeSource, 0, 2)
			return &s, &i
		},
		func() (*State, *State) {
			var s, i State
			s.Init()
			i.Init()
			s.AppendRun(9, 'q')
			i.AppendCopy(CopyModeSource, 2, 5)
			i.AppendAdd([]byte("zz"))
			return &s, &i
		},
	}

	for idx, build := range cases {
		source, input := build()
		out, err := MergeInputs(source, input)
		if err != nil {
			t.Fatalf("case %d: merge failed: %v", idx, err)
		}
		if out.Length != input.Length {
			t.Errorf("case %d: output length %d != input length %d", idx, out.Length, input.Length)
		}
	}
}

func requireSingleInst(t *testing.T, s *State, kind InstKind, position uint64, size uint32) {
	t.Helper()
	if s.NumInsts() != 1 {
		t.Fatalf("expected exactly 1 instruction, got %d", s.NumInsts())
	}
	inst := s.Inst(0)
	if inst.Kind != kind || inst.Position != position || inst.Size != size {
		t.Fatalf("unexpected instruction: %+v, want kind=%v position=%d size=%d", inst, kind, position, size)
	}
}
