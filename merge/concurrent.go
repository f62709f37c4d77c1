package merge

import "golang.org/x/sync/errgroup"

// MergeInputsConcurrent is an alternate entry point to MergeInputs that
// partitions input's instructions across a worker pool — an optional
// path, never required for correctness. Each input instruction's
// output byte range is a fixed, disjoint span of [0, input.Length) —
// the cumulative prefix sum of instruction sizes — regardless of how
// many output instructions it expands into, so every instruction can
// be resolved into its own scratch chunk independently and the chunks
// concatenated in input order afterward.
//
// workers caps concurrency; a value <= 0 means no cap beyond
// errgroup's default (GOMAXPROCS-sized scheduling, unbounded
// goroutines). MergeInputsConcurrent produces byte-identical output to
// MergeInputs for the same inputs; it exists for callers merging large
// deltas where the per-instruction resolution cost dominates. The
// Driver (Reduce) always uses the sequential MergeInputs.
func MergeInputsConcurrent(source, input *State, workers int) (*State, error) {
	n := input.NumInsts()

	var output State
	output.Init()

	if n == 0 {
		return &output, nil
	}

	chunks := make([]State, n)
	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			chunks[i].Init()
			return mergeOneInstruction(&chunks[i], source, input, input.Inst(i))
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		appendChunk(&output, &chunks[i])
	}

	return &output, nil
}

// appendChunk re-emits every instruction in chunk onto output, which
// reassigns Position (output's own running length) and relocates any
// RUN/ADD payload from chunk's scratch arena into output's. COPY
// addresses need no translation: CopyModeSource addresses are absolute
// within the external source regardless of chunk boundaries, and
// CopyModeTarget/CopyModeTargetWindow addresses are absolute within the
// shared target/earlier-target address space for the same reason.
func appendChunk(output, chunk *State) {
	for i := 0; i < chunk.NumInsts(); i++ {
		inst := chunk.Inst(i)
		switch inst.Kind {
		case KindRun:
			output.AppendRun(inst.Size, chunk.ArenaBytes(inst.Addr, 1)[0])
		case KindAdd:
			output.AppendAdd(chunk.ArenaBytes(inst.Addr, inst.Size))
		case KindCopy:
			output.AppendCopy(inst.Mode, inst.Addr, inst.Size)
		}
	}
}
