package vaulttypes

import "strings"

// NormalizeRemotePath collapses a raw path string into the canonical form: a
// single leading slash, '/'-separated segments, no trailing slash (except for
// the root itself), and no "." or ".." segments.
func NormalizeRemotePath(raw string) RemotePath {
	segments := splitSegments(raw)
	if len(segments) == 0 {
		return RemotePath("/")
	}
	return RemotePath("/" + strings.Join(segments, "/"))
}

// Normalize re-applies NormalizeRemotePath; normalizing an already-normalized
// path is idempotent.
func (p RemotePath) Normalize() RemotePath {
	return NormalizeRemotePath(string(p))
}

// IsRoot reports whether the path refers to the top-level directory.
func (p RemotePath) IsRoot() bool {
	return p.Normalize() == RemotePath("/")
}

// Segments returns the normalized path's non-empty path components.
func (p RemotePath) Segments() []string {
	return splitSegments(string(p))
}

// Join appends a single name as a new path segment, returning a normalized result.
func (p RemotePath) Join(name RemoteName) RemotePath {
	segments := append(append([]string(nil), p.Segments()...), string(name))
	if len(segments) == 0 {
		return RemotePath("/")
	}
	return RemotePath("/" + strings.Join(segments, "/"))
}

// Parent returns the path one level up; the root's parent is itself.
func (p RemotePath) Parent() RemotePath {
	segments := p.Segments()
	if len(segments) == 0 {
		return RemotePath("/")
	}
	segments = segments[:len(segments)-1]
	if len(segments) == 0 {
		return RemotePath("/")
	}
	return RemotePath("/" + strings.Join(segments, "/"))
}

// Name returns the final path segment, or "" for the root.
func (p RemotePath) Name() RemoteName {
	segments := p.Segments()
	if len(segments) == 0 {
		return ""
	}
	return RemoteName(segments[len(segments)-1])
}

func splitSegments(raw string) []string {
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, part)
		}
	}
	return segments
}

// NormalizeEncryptedPath applies the same normalization rules in the
// encrypted namespace; segments are opaque encrypted names and are not
// otherwise interpreted.
func NormalizeEncryptedPath(raw string) EncryptedPath {
	return EncryptedPath(NormalizeRemotePath(raw))
}

// NormalizeDecryptedPath applies the same normalization rules in the
// decrypted (user-facing) namespace.
func NormalizeDecryptedPath(raw string) DecryptedPath {
	return DecryptedPath(NormalizeRemotePath(raw))
}
