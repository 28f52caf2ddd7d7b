package remote

// Loaded reports whether a manifest is cached.
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.manifest != nil
}
