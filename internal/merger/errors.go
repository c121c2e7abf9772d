package merger

import "errors"

// Sentinel errors identifying the merge failure taxonomy, wrapped with
// context via fmt.Errorf("...: %w", ...) at each call site rather than
// returned bare.
var (
	// ErrSourceUnreadable means an archive could not be extracted, or its
	// extracted layout doesn't contain exactly one .db and a manifest.json.
	ErrSourceUnreadable = errors.New("merger: source archive is unreadable")

	// ErrSchemaMismatch means two or more sources disagree on table set,
	// primary keys, or foreign keys.
	ErrSchemaMismatch = errors.New("merger: sources do not share a compatible schema")

	// ErrOffsetStrideExceeded means a source's own maximum primary key
	// already meets or exceeds the loader's offset stride (see
	// internal/sourceload.ErrOffsetStrideExceeded).
	ErrOffsetStrideExceeded = errors.New("merger: source primary key exceeds the offset stride")

	// ErrVerificationFailed means the post-merge invariant checks in
	// internal/verify found at least one violation.
	ErrVerificationFailed = errors.New("merger: post-merge verification failed")

	// ErrWorkingDirLocked means another jwlmerge merge is already running
	// against the same working directory.
	ErrWorkingDirLocked = errors.New("merger: working directory is locked by another merge")
)
