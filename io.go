package safeloader

import "time"

// ByteReader reads the full contents of a named input. The core never
// opens files itself — per spec.md §1, "reading kernel and rootfs
// bytes from disk" is an external collaborator's job.
type ByteReader interface {
	ReadFile(name string) ([]byte, error)
}

// ByteWriter writes the full contents of a named output. Like
// ByteReader, the core never touches the filesystem directly.
type ByteWriter interface {
	WriteFile(name string, data []byte) error
}

// Clock supplies the current time for soft-version build-date records.
// A replayable build (SOURCE_DATE_EPOCH) is just an alternate Clock
// implementation; the core never reads the environment or the wall
// clock itself.
type Clock interface {
	Now() time.Time
}

// MD5Func computes the MD5 digest of data. The core treats MD5 as an
// opaque primitive supplied by the caller rather than importing
// crypto/md5 itself, per spec.md §1.
type MD5Func func(data []byte) [16]byte

// systemClock is the trivial Clock backed by time.Now, used by tests
// and anywhere a caller has no replayable-build requirement.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

// FixedClock is a Clock that always returns the same instant, used to
// implement SOURCE_DATE_EPOCH replayable builds (threaded in by the
// cli package — see spec.md §9's "module-level clock" design note).
type FixedClock time.Time

func (f FixedClock) Now() time.Time { return time.Time(f) }
