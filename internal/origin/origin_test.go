package origin

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrames replays a fixed backtrace.
type fakeFrames struct {
	frames []runtime.Frame
}

func (f *fakeFrames) Next() (runtime.Frame, bool) {
	if len(f.frames) == 0 {
		return runtime.Frame{}, false
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, len(f.frames) > 0
}

func frames(fns ...string) *fakeFrames {
	out := make([]runtime.Frame, len(fns))
	for i, fn := range fns {
		out[i] = runtime.Frame{Function: fn, File: "/src/" + strings.ReplaceAll(fn, "/", "_") + ".go", Line: 10 + i}
	}
	return &fakeFrames{frames: out}
}

func TestResolver_SkipsInternalFrames(t *testing.T) {
	r := DefaultResolver()

	got := r.Resolve(frames(
		"github.com/roach88/lineage/internal/engine.(*Engine).Audit",
		"github.com/roach88/lineage.Audit",
		"example.com/physics.integrate",
		"runtime.goexit",
	))

	assert.Equal(t, "example.com/physics.integrate", got.Function)
	assert.Equal(t, 12, got.Line)
	assert.False(t, got.IsUnknown())
}

func TestResolver_AllInternalIsUnknown(t *testing.T) {
	r := DefaultResolver()

	got := r.Resolve(frames(
		"github.com/roach88/lineage/internal/engine.(*Engine).Audit",
		"runtime.main",
		"runtime.goexit",
	))

	assert.True(t, got.IsUnknown())
	assert.Equal(t, "Unknown", got.String())
}

func TestResolver_EmptyAndNil(t *testing.T) {
	r := DefaultResolver()
	assert.Equal(t, Unknown, r.Resolve(&fakeFrames{}))
	assert.Equal(t, Unknown, r.Resolve(nil))
}

func TestResolver_CustomPrefixes(t *testing.T) {
	r := NewResolver("example.com/mathlib.")

	got := r.Resolve(frames("example.com/mathlib.Add", "example.com/app.main"))
	assert.Equal(t, "example.com/app.main", got.Function)

	assert.True(t, r.IsInternal("runtime.goexit"))
	assert.False(t, r.IsInternal("github.com/roach88/lineage.Audit"))
}

func TestResolver_WithKeepsOriginal(t *testing.T) {
	base := DefaultResolver()
	wrapped := base.With("example.com/mathlib.")

	assert.True(t, wrapped.IsInternal("example.com/mathlib.Add"))
	assert.True(t, wrapped.IsInternal("github.com/roach88/lineage/internal/engine.(*Engine).Audit"))
	assert.False(t, base.IsInternal("example.com/mathlib.Add"))
}

func TestResolver_Caller(t *testing.T) {
	r := NewResolver("github.com/roach88/lineage/internal/origin.(*Resolver)")

	got := r.Caller(0)

	require.False(t, got.IsUnknown())
	assert.Equal(t, "github.com/roach88/lineage/internal/origin.TestResolver_Caller", got.Function)
	assert.True(t, strings.HasPrefix(got.String(), "github.com/roach88/lineage/internal/origin.TestResolver_Caller(origin_test.go:"))
}

func TestFrame_String(t *testing.T) {
	f := Frame{Function: "main.run", File: "/home/u/app/main.go", Line: 42}
	assert.Equal(t, "main.run(main.go:42)", f.String())

	assert.Equal(t, "main.run", Frame{Function: "main.run"}.String())
}
