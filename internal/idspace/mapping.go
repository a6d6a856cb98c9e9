package idspace

// Mapping is the bidirectional local/global ID table for one sub-tokenizer's
// regular tokens. Local regular IDs are dense and 0-based, so the forward
// direction is a plain slice. A Mapping is immutable once built; extension
// replaces it wholesale.
type Mapping struct {
	tokenizerID   int
	localToGlobal []int64
	globalToLocal map[int64]int
}

// NewMapping builds a Mapping from a dense local-ID-indexed global ID slice.
// Used when reconstructing persisted state; allocation builds its own.
func NewMapping(tokenizerID int, localToGlobal []int64) *Mapping {
	m := &Mapping{
		tokenizerID:   tokenizerID,
		localToGlobal: append([]int64(nil), localToGlobal...),
		globalToLocal: make(map[int64]int, len(localToGlobal)),
	}
	for local, global := range m.localToGlobal {
		m.globalToLocal[global] = local
	}
	return m
}

// TokenizerID returns the sub-tokenizer this table belongs to.
func (m *Mapping) TokenizerID() int { return m.tokenizerID }

// NumRegular returns the number of regular tokens mapped.
func (m *Mapping) NumRegular() int { return len(m.localToGlobal) }

// ToGlobal maps a local regular ID to its global ID.
func (m *Mapping) ToGlobal(local int) (int64, bool) {
	if local < 0 || local >= len(m.localToGlobal) {
		return 0, false
	}
	return m.localToGlobal[local], true
}

// ToLocal maps a global ID back to this sub-tokenizer's local regular ID.
func (m *Mapping) ToLocal(global int64) (int, bool) {
	local, ok := m.globalToLocal[global]
	return local, ok
}

// Globals returns a copy of the global IDs in local-ID order.
func (m *Mapping) Globals() []int64 {
	return append([]int64(nil), m.localToGlobal...)
}
