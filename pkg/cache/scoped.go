package cache

// ScopedKeyer wraps a Keyer with a prefix, giving each research record its
// own namespace so that records can be purged independently.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "research:"+id+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DetectKey generates a prefixed detection key.
func (k *ScopedKeyer) DetectKey(algorithm string, graph []byte) string {
	return k.prefix + k.inner.DetectKey(algorithm, graph)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, opts)
}
