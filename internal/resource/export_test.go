package resource

// RawItem exposes the stored record to external tests without cloning
// or soft-delete filtering.
func RawItem[T Record](s *MemoryStore[T], id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[id]
	return rec, ok
}
