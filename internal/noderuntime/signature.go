// Package noderuntime implements the shared base every node builds on:
// content-signature computation over a node's config (spec.md §4.2.1) and
// the per-item execution envelope that wraps cache lookup, parallel miss
// dispatch, and ordered result assembly around a node's own doWork (§4.2.2).
package noderuntime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kilnbuild/kiln/internal/input"
)

// FileRef marks a config value as a direct file dependency: it contributes
// to the content signature as a path marker (not its content — content is
// captured separately via input hashing at cache-entry build time) and is
// collected as a config dependency for cache invalidation.
type FileRef string

// NodeRef marks a config value as a reference to another node's emitted
// output, optionally filtered by glob. Its path list is deliberately not
// interpolated into the signature — the producer's content is instead
// captured through the cache entry's upstream signature, so that moving the
// producer's files around doesn't evict every downstream cache entry.
type NodeRef struct {
	Producer string
	Output   string
	Glob     string
}

// NamedHook stands in for a callable config value. Go cannot stably
// stringify a function, so hooks are registered under a string ID and
// referenced by that ID in config; the ID itself participates in the
// signature like any other scalar.
type NamedHook struct {
	ID string
}

// Signature computes the stable content signature for a node's config, per
// spec.md §4.2.1: sorted keys, canonical scalar/array/map serialization,
// FileRef/NodeRef/NamedHook sentinel handling, then hashed. The result is
// "<nodeTypeTag>-<first 8 hex chars of sha256>".
func Signature(nodeTypeTag string, config map[string]interface{}) (string, error) {
	canonical, err := canonicalize(config)
	if err != nil {
		return "", fmt.Errorf("noderuntime: canonicalize config: %w", err)
	}

	sum := sha256.Sum256([]byte(canonical))
	digest := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s-%s", nodeTypeTag, digest[:8]), nil
}

func canonicalize(v interface{}) (string, error) {
	switch value := v.(type) {
	case nil:
		return "null", nil
	case FileRef:
		return fmt.Sprintf("FileRef(%s)", value), nil
	case NodeRef:
		return canonicalizeNodeRef(value), nil
	case NamedHook:
		return fmt.Sprintf("hook(%s)", value.ID), nil
	case map[string]interface{}:
		return canonicalizeMap(value)
	case []interface{}:
		return canonicalizeArray(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

func canonicalizeNodeRef(ref NodeRef) string {
	if ref.Glob != "" {
		return fmt.Sprintf("from(%s:%s:%s)", ref.Producer, ref.Output, ref.Glob)
	}
	return fmt.Sprintf("from(%s:%s)", ref.Producer, ref.Output)
}

func canonicalizeMap(m map[string]interface{}) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	written := 0
	for _, k := range keys {
		val, err := canonicalize(m[k])
		if err != nil {
			return "", err
		}
		if val == "null" {
			continue
		}

		if written > 0 {
			b.WriteByte(',')
		}
		keyEncoded, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		b.Write(keyEncoded)
		b.WriteByte(':')
		b.WriteString(val)
		written++
	}
	b.WriteByte('}')
	return b.String(), nil
}

func canonicalizeArray(items []interface{}) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		val, err := canonicalize(item)
		if err != nil {
			return "", err
		}
		b.WriteString(val)
	}
	b.WriteByte(']')
	return b.String(), nil
}

// CollectFileRefs walks config recursively and returns the sorted, deduped
// set of paths referenced via FileRef.
func CollectFileRefs(config map[string]interface{}) []string {
	seen := make(map[string]bool)
	walk(config, func(v interface{}) {
		if ref, ok := v.(FileRef); ok {
			seen[string(ref)] = true
		}
	})

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CollectNodeRefs walks config recursively and returns the NodeRef values
// it finds, deduped by (Producer, Output, Glob) and ordered deterministically.
func CollectNodeRefs(config map[string]interface{}) []NodeRef {
	seen := make(map[NodeRef]bool)
	walk(config, func(v interface{}) {
		if ref, ok := v.(NodeRef); ok {
			seen[ref] = true
		}
	})

	refs := make([]NodeRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Producer != refs[j].Producer {
			return refs[i].Producer < refs[j].Producer
		}
		if refs[i].Output != refs[j].Output {
			return refs[i].Output < refs[j].Output
		}
		return refs[i].Glob < refs[j].Glob
	})
	return refs
}

func walk(v interface{}, visit func(interface{})) {
	switch value := v.(type) {
	case map[string]interface{}:
		for _, child := range value {
			walk(child, visit)
		}
	case []interface{}:
		for _, child := range value {
			walk(child, visit)
		}
	case input.Input:
		walkInput(value, visit)
	default:
		visit(v)
	}
}

// walkInput decomposes an input.Input into the FileRef/NodeRef sentinels
// CollectFileRefs/CollectNodeRefs recognize. Nodes put input.Input values
// straight into their Config() map rather than pre-decomposing them, so
// without this CollectNodeRefs/CollectFileRefs would never see a real
// node-output or file reference and the edges/cache dependencies spec.md
// §3 requires would silently never materialize.
func walkInput(in input.Input, visit func(interface{})) {
	switch in.Kind {
	case input.KindList:
		for _, item := range in.Items {
			walkInput(item, visit)
		}
	case input.KindNodeRef:
		visit(NodeRef{Producer: in.Ref.Producer, Output: in.Ref.Output, Glob: in.Ref.Glob})
	case input.KindFileRef:
		visit(FileRef(in.Path))
	}
}
