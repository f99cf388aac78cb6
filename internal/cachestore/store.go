// Package cachestore implements the per-item Cache Store: persistence of
// Entry records and two-tier validation against the current filesystem
// state, as specified in spec.md §4.1.
//
// The cache directory is treated as exclusively owned by the running
// pipeline; no lock file guards it against a second concurrent pipeline run
// targeting the same directory (spec.md §9's open question — left as a
// documented precondition rather than an enforced one).
package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilnbuild/kiln/internal/logging"
	"github.com/kilnbuild/kiln/internal/pathsafe"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Store persists Entry records under a root cache directory, one
// subdirectory per content signature and one JSON file per cache key.
type Store struct {
	root   string
	logger logging.Logger
}

// New creates a Store rooted at cacheDir. The directory is created lazily on
// first write.
func New(cacheDir string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &Store{root: cacheDir, logger: logger}
}

// Root returns the cache directory this store writes under.
func (s *Store) Root() string { return s.root }

func (s *Store) entryPath(signature, cacheKey string) string {
	return filepath.Join(s.root, sanitize(signature), sanitize(cacheKey)+".json")
}

// Get reads the entry for (signature, cacheKey). A missing file is a clean
// absence (nil, false, nil); any other I/O or decode failure is reported as
// a CacheIOError but is not fatal — callers treat it exactly like absence.
func (s *Store) Get(signature, cacheKey string) (*Entry, bool, error) {
	path := s.entryPath(signature, cacheKey)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, kilnerrors.NewCacheIOError(path, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, kilnerrors.NewCacheIOError(path, err)
	}

	return &entry, true, nil
}

// Put persists entry for (signature, cacheKey), creating the signature
// directory if needed and writing atomically (write to a temp file, then
// rename). Write failures are fatal and propagate to the caller.
func (s *Store) Put(signature, cacheKey string, entry *Entry) error {
	path := s.entryPath(signature, cacheKey)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kilnerrors.NewCacheIOError(path, err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return kilnerrors.NewCacheIOError(path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return kilnerrors.NewCacheIOError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return kilnerrors.NewCacheIOError(path, err)
	}

	return nil
}

// FileHash computes the SHA-256 hex digest of a file's bytes.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CopyTo materializes a cached artifact at dst, creating parent directories
// as needed. Used to reuse one node's cached output at a different
// consumer's expected path (cross-node reuse).
func CopyTo(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// ComputeOutputSignature returns a stable fingerprint of an ordered path
// list: identical lists hash identically, and the hash changes whenever the
// ordered contents change (spec.md §8's round-trip law).
func ComputeOutputSignature(paths []string) string {
	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildParams bundles the inputs to Build; see spec.md §4.1.
type BuildParams struct {
	Items              []string
	OutputsByKey       map[string][]string
	OutputBaseDir      string
	CacheKey           string
	ConfigDepPaths     []string
	DiscoveredDepPaths []string
	UpstreamSignatures map[string]UpstreamSignature
}

// Build computes hashes and timestamps for items and for every config/
// discovered dependency that currently exists, and assembles a fresh Entry.
// A missing item file is a hard error (the entry would be internally
// inconsistent); a missing optional dependency is silently skipped here —
// its absence is what makes the *next* validation invalidate the entry, a
// self-correcting behavior per spec.md §7.
func (s *Store) Build(params BuildParams) (*Entry, error) {
	entry := &Entry{
		ItemFiles:          append([]string(nil), params.Items...),
		InputHashes:        make(map[string]string, len(params.Items)),
		InputTimestamps:    make(map[string]int64, len(params.Items)),
		OutputsByKey:       params.OutputsByKey,
		OutputBaseDir:      params.OutputBaseDir,
		ConfigDeps:         make(map[string]string),
		UpstreamSignatures: params.UpstreamSignatures,
		CacheKey:           params.CacheKey,
		CreatedAtMillis:    time.Now().UnixMilli(),
	}

	for _, item := range params.Items {
		hash, err := FileHash(item)
		if err != nil {
			return nil, kilnerrors.NewCacheIOError(item, err)
		}
		info, err := os.Stat(item)
		if err != nil {
			return nil, kilnerrors.NewCacheIOError(item, err)
		}
		entry.InputHashes[item] = hash
		entry.InputTimestamps[item] = info.ModTime().UnixMilli()
	}

	for _, dep := range params.ConfigDepPaths {
		if hash, ok := s.hashIfExists(dep); ok {
			entry.ConfigDeps[dep] = hash
		}
	}

	if len(params.DiscoveredDepPaths) > 0 {
		entry.DiscoveredDeps = make(map[string]string)
		for _, dep := range params.DiscoveredDepPaths {
			if hash, ok := s.hashIfExists(dep); ok {
				entry.DiscoveredDeps[dep] = hash
			}
		}
	}

	return entry, nil
}

func (s *Store) hashIfExists(path string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	hash, err := FileHash(path)
	if err != nil {
		return "", false
	}
	return hash, true
}

// UpstreamResolver exposes a producer node's current emitted outputs, used
// by Validate to recompute upstream signatures without the caller having to
// understand the pipeline's internal snapshot representation.
type UpstreamResolver interface {
	NodeOutputs(nodeName string) (map[string][]string, bool)
}

// Validate runs the five-check validation procedure from spec.md §4.1. It
// returns true on a clean hit and false otherwise; a check that fails
// unexpectedly (for example an unreadable file) also reports false, so
// callers treat it as an ordinary miss.
func (s *Store) Validate(entry *Entry, resolver UpstreamResolver) bool {
	if !s.outputsExist(entry) {
		return false
	}
	if !s.inputsFresh(entry) {
		return false
	}
	if !s.depsMatch(entry.ConfigDeps) {
		return false
	}
	if !s.depsMatch(entry.DiscoveredDeps) {
		return false
	}
	if !s.upstreamMatches(entry, resolver) {
		return false
	}
	return true
}

func (s *Store) outputsExist(entry *Entry) bool {
	for _, paths := range entry.OutputsByKey {
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				return false
			}
		}
	}
	return true
}

func (s *Store) inputsFresh(entry *Entry) bool {
	for _, item := range entry.ItemFiles {
		info, err := os.Stat(item)
		if err != nil {
			return false
		}
		wantTs, ok := entry.InputTimestamps[item]
		if ok && info.ModTime().UnixMilli() == wantTs {
			continue // fast path: mtime unchanged, accept
		}

		hash, err := FileHash(item)
		if err != nil {
			return false
		}
		if hash != entry.InputHashes[item] {
			return false
		}
		// slow path accepted: content unchanged despite touched mtime;
		// the entry's recorded mtime is intentionally left stale so the
		// next run pays the hash check again rather than silently
		// re-trusting a timestamp that already proved unreliable once.
	}
	return true
}

func (s *Store) depsMatch(deps map[string]string) bool {
	for path, wantHash := range deps {
		hash, ok := s.hashIfExists(path)
		if !ok || hash != wantHash {
			return false
		}
	}
	return true
}

func (s *Store) upstreamMatches(entry *Entry, resolver UpstreamResolver) bool {
	if len(entry.UpstreamSignatures) == 0 {
		return true
	}
	if resolver == nil {
		return false
	}

	for nodeName, want := range entry.UpstreamSignatures {
		outputs, ok := resolver.NodeOutputs(nodeName)
		if !ok {
			return false
		}
		paths := outputs[want.OutputKey]
		if want.Glob != "" {
			paths = filterByGlob(paths, want.Glob)
		}
		if ComputeOutputSignature(paths) != want.Signature {
			return false
		}
	}
	return true
}

func filterByGlob(paths []string, pattern string) []string {
	var out []string
	for _, p := range paths {
		if ok, _ := filepath.Match(pattern, filepath.Base(p)); ok {
			out = append(out, p)
		}
	}
	return out
}

// CleanExcept deletes entries under signature's directory whose cache key is
// not present in keep. This is the older cache scheme's orphan-cleanup
// behavior; the newer scheme (and kiln's default usage) deliberately never
// calls this automatically, since two nodes sharing a content signature
// could otherwise race each other's cleanup. It remains available as an
// explicit, caller-opted-in operation — see spec.md §9.
func (s *Store) CleanExcept(signature string, keep map[string]bool) error {
	dir := filepath.Join(s.root, sanitize(signature))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return kilnerrors.NewCacheIOError(dir, err)
	}

	keepSanitized := make(map[string]bool, len(keep))
	for k := range keep {
		keepSanitized[sanitize(k)+".json"] = true
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if keepSanitized[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return kilnerrors.NewCacheIOError(filepath.Join(dir, e.Name()), err)
		}
	}
	return nil
}

// Rebase reapplies a cached output path, originally recorded under
// entry.OutputBaseDir, onto newBase. Used when a node's pathForOutput
// callback has no deterministic answer for a given output name (secondary,
// structure-discovered outputs such as xsl:result-document targets).
func Rebase(originalPath, oldBase, newBase string) (string, error) {
	rel, err := filepath.Rel(oldBase, originalPath)
	if err != nil {
		return "", kilnerrors.NewEscapeError(newBase, originalPath)
	}
	return pathsafe.Rebase(newBase, rel)
}

func sanitize(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "_"
	}
	return out
}
