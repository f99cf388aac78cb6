// Package pathsafe enforces the "no .. escape" invariant the orchestrator
// places on rebased cache outputs and shaped output paths: a path computed
// relative to some base directory must still resolve underneath it.
package pathsafe

import (
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Rebase takes a path that was recorded relative to oldBase and re-expresses
// it relative to newBase, returning an error if the result would lie outside
// newBase. relPath must already be relative (typically produced by
// filepath.Rel(oldBase, originalPath)).
func Rebase(newBase, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", kilnerrors.NewEscapeError(newBase, relPath)
	}
	if clean := filepath.ToSlash(filepath.Clean(relPath)); clean == ".." || strings.HasPrefix(clean, "../") {
		return "", kilnerrors.NewEscapeError(newBase, relPath)
	}

	joined, err := securejoin.SecureJoin(newBase, relPath)
	if err != nil {
		return "", kilnerrors.NewEscapeError(newBase, relPath)
	}

	return joined, nil
}

// EnsureUnder verifies that candidate resolves to a path underneath base.
// It does not require candidate to exist.
func EnsureUnder(base, candidate string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return kilnerrors.NewEscapeError(base, candidate)
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return kilnerrors.NewEscapeError(base, candidate)
	}

	rel, err := filepath.Rel(absBase, absCandidate)
	if err != nil {
		return kilnerrors.NewEscapeError(base, candidate)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return kilnerrors.NewEscapeError(base, candidate)
	}

	return nil
}
