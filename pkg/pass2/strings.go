package pass2

// nameSet holds the names seen so far in one directory block. The map is
// reused from block to block and emptied at every block boundary.
type nameSet struct {
	names map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{names: make(map[string]struct{})}
}

// insert adds name and reports whether it was already present.
func (s *nameSet) insert(name []byte) bool {
	if _, ok := s.names[string(name)]; ok {
		return true
	}
	s.names[string(name)] = struct{}{}
	return false
}

func (s *nameSet) reset() {
	clear(s.names)
}

func (s *nameSet) len() int {
	return len(s.names)
}
