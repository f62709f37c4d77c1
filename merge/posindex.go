package merge

// Find performs a binary search over state's instruction vector for the
// unique instruction whose span contains the target byte offset a:
// state.Inst(i).Position <= a < state.Inst(i).Position +
// state.Inst(i).Size.
//
// Find requires state's instructions to be strictly ordered, contiguous,
// and cover [0, length); ErrMergeInternal is returned if the search
// fails to converge despite a < state.Length, which would indicate that
// invariant was violated upstream.
func Find(state *State, a uint64) (int, error) {
	if a >= state.Length {
		return 0, wrapInvalid("position index: offset %d is outside state of length %d", a, state.Length)
	}

	low, high := 0, state.NumInsts()
	for low < high {
		mid := low + (high-low)/2
		inst := state.Inst(mid)
		if a < inst.Position {
			high = mid
			continue
		}
		midEnd := inst.Position + uint64(inst.Size)
		if a >= midEnd {
			low = mid + 1
			continue
		}
		return mid, nil
	}

	return 0, wrapInternal("position index: binary search failed to converge for offset %d", a)
}
