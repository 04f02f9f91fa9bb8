package keys

import "github.com/readium/xmlenc/errs"

const component = "keys"

// defaultCapacity mirrors xmlSecSimpleKeysMngrCreate's initial allocation
// of 16 key slots; KeyStore grows by doubling from there exactly like the
// C store's realloc-based growth.
const defaultCapacity = 16

// KeyStore is an ordered, insertion-order-preserving collection of Keys,
// mirroring xmlSecKeysMngr's internal xmlSecPtrList of xmlSecKeyPtr.
type KeyStore struct {
	keys []*Key
	cap  int
}

// NewKeyStore returns an empty store pre-sized to defaultCapacity, matching
// xmlSecSimpleKeysMngrCreate.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make([]*Key, 0, defaultCapacity), cap: defaultCapacity}
}

// Add appends key to the store, growing capacity by doubling when full
// (16, 32, 64, ...), exactly as xmlSecPtrListAdd grows its backing array.
func (s *KeyStore) Add(key *Key) error {
	if key == nil {
		return errs.New(component, errs.KindInvalidData, "cannot add a nil key")
	}
	if len(s.keys) == s.cap {
		s.cap *= 2
	}
	s.keys = append(s.keys, key)
	return nil
}

// Len reports the number of keys currently held.
func (s *KeyStore) Len() int { return len(s.keys) }

// Find performs a linear scan in insertion order and returns a duplicate of
// the first key whose name (when non-empty) equals name and which
// satisfies req, matching xmlSecSimpleKeysMngrFindKey's semantics
// (first-match-wins on ties, and the caller never receives a live alias
// into the store).
func (s *KeyStore) Find(name string, req Requirement) *Key {
	for _, k := range s.keys {
		if name != "" && k.Name != name {
			continue
		}
		if !k.Matches(req) {
			continue
		}
		return k.Duplicate()
	}
	return nil
}

// All returns a snapshot slice of the store's keys in insertion order,
// duplicated so callers (e.g. Save) cannot mutate the store through it.
func (s *KeyStore) All() []*Key {
	out := make([]*Key, len(s.keys))
	for i, k := range s.keys {
		out[i] = k.Duplicate()
	}
	return out
}

// Clear releases every key in the store, zeroing symmetric material first.
func (s *KeyStore) Clear() {
	for _, k := range s.keys {
		k.Close()
	}
	s.keys = s.keys[:0]
}
