package script

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	log = logger.GetLogger("script")

	// catalog maps the hash of every known script to the script
	catalog = map[string]*Script{}
)

// Script is an atomic operation executed on the store. It is identified by a name and
// by the SHA1 of its source, which is the reference used for the store's script cache.
type Script struct {
	Name    string // Name of the operation (e.g. acquire_exclusive_simple)
	Source  string // Lua source
	Hash    string // Hex encoded SHA1 of Source
	NumKeys int    // Number of KEYS the script expects
}

// newScript creates a script and adds it to the catalog.
// It panics on a duplicate name or source since the catalog is built at init time.
func newScript(name string, source string) *Script {
	sum := sha1.Sum([]byte(source))
	s := &Script{
		Name:    name,
		Source:  source,
		Hash:    hex.EncodeToString(sum[:]),
		NumKeys: 1,
	}
	for _, other := range catalog {
		if other.Name == name || other.Hash == s.Hash {
			panic(fmt.Sprintf("script: duplicate script %s", name))
		}
	}
	catalog[s.Hash] = s
	return s
}

// Execute runs the script for a single key.
// The cached reference (EvalSha) is tried first, a cache miss falls back to sending the
// full source (Eval). A cache miss is never reported to the caller.
func (s *Script) Execute(ctx context.Context, st store.IStore, key string, args ...string) (int64, error) {
	keys := []string{key}
	if len(keys) != s.NumKeys {
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("script %s expects %d keys", s.Name, s.NumKeys))
	}

	result, err := st.EvalSha(ctx, s.Hash, keys, args...)
	if err == nil {
		return result, nil
	}
	if !store.IsNoScript(err) {
		return 0, err
	}

	log.Debugf("script %s (%s) not cached, sending source", s.Name, s.Hash[:8])
	return st.Eval(ctx, s.Source, keys, args...)
}

func (s *Script) String() string {
	return s.Name
}

// Lookup returns the known script with the given SHA1 hash.
func Lookup(hash string) (*Script, bool) {
	s, ok := catalog[hash]
	return s, ok
}

// LookupSource returns the known script with the given source.
func LookupSource(source string) (*Script, bool) {
	sum := sha1.Sum([]byte(source))
	return Lookup(hex.EncodeToString(sum[:]))
}

// All returns every known script, in no particular order.
func All() []*Script {
	scripts := make([]*Script, 0, len(catalog))
	for _, s := range catalog {
		scripts = append(scripts, s)
	}
	return scripts
}
