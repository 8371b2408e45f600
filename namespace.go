package byok

import "sync"

// Namespace is one scope's storage: a mapping from provider to encrypted
// bundle. The three scope namespaces are disjoint by construction and there
// is deliberately no primitive that lists credentials across scopes.
type Namespace interface {
	Get(provider Provider) (EncryptedBundle, bool)
	Set(provider Provider, bundle EncryptedBundle)
	Delete(provider Provider)
}

// MemoryNamespace is the in-process Namespace implementation backing all
// three scopes by default.
type MemoryNamespace struct {
	mu      sync.RWMutex
	bundles map[Provider]EncryptedBundle
}

// NewMemoryNamespace creates an empty namespace.
func NewMemoryNamespace() *MemoryNamespace {
	return &MemoryNamespace{bundles: make(map[Provider]EncryptedBundle)}
}

func (n *MemoryNamespace) Get(provider Provider) (EncryptedBundle, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	b, ok := n.bundles[provider]
	return b, ok
}

func (n *MemoryNamespace) Set(provider Provider, bundle EncryptedBundle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bundles[provider] = bundle
}

func (n *MemoryNamespace) Delete(provider Provider) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.bundles, provider)
}
