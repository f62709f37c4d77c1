package merge

// MergeDeltas merges accumulator (Δ(S→M)) with next (Δ(M→T)), then
// swaps the freshly produced Δ(S→T) into accumulator and releases the
// intermediate state. accumulator is mutated in place; next is
// borrowed, not mutated or freed.
func MergeDeltas(accumulator *State, next *State) error {
	merged, err := MergeInputs(accumulator, next)
	if err != nil {
		return err
	}

	Swap(accumulator, merged)
	merged.Free()
	return nil
}

// Reduce folds a chain of ≥2 Whole-Target States d1...dn, each
// Δ(W_i→W_{i+1}), into a single Δ(W_1→W_{n+1}). It takes ownership of
// every state in chain: on success each is left zero-valued (freed),
// and the caller must not use them afterward. If a merge fails, the
// states from the failing one onward are not freed. A chain of
// fewer than 2 states is returned as-is (ownership transferred, no
// merge performed).
func Reduce(chain []*State) (*State, error) {
	acc := new(State)
	acc.Init()

	if len(chain) == 0 {
		return acc, nil
	}

	Swap(acc, chain[0])
	chain[0].Free()

	for i := 1; i < len(chain); i++ {
		if err := MergeDeltas(acc, chain[i]); err != nil {
			return nil, err
		}
		chain[i].Free()
	}

	return acc, nil
}
