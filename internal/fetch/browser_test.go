package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

// fakeTab reports health from alive in call order; once exhausted the last
// value repeats.
type fakeTab struct {
	alive    []bool
	checks   int
	html     string
	waitErr  error
	navigate []string
}

func (f *fakeTab) Alive() bool {
	i := f.checks
	f.checks++
	if i >= len(f.alive) {
		i = len(f.alive) - 1
	}
	return f.alive[i]
}

func (f *fakeTab) Navigate(_ context.Context, pageURL string) error {
	f.navigate = append(f.navigate, pageURL)
	return nil
}

func (f *fakeTab) WaitFor(context.Context, string) error { return f.waitErr }

func (f *fakeTab) HTML(context.Context) (string, error) { return f.html, nil }

func TestReadTab(t *testing.T) {
	tb := &fakeTab{alive: []bool{true}, html: "<html>module</html>"}

	page, err := readTab(context.Background(), tb, "https://example.org/m/1", "ca-entry", logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "<html>module</html>", page.HTML)
	assert.Equal(t, ViaBrowser, page.Via)
	assert.Equal(t, 2, tb.checks)
}

func TestReadTabDeadBeforeLoad(t *testing.T) {
	tb := &fakeTab{alive: []bool{false}}

	_, err := readTab(context.Background(), tb, "https://example.org/m/1", "", logger.Nop())
	assert.ErrorIs(t, err, ErrSessionDead)
	assert.Empty(t, tb.navigate)
}

func TestReadTabDiesWhileReading(t *testing.T) {
	tb := &fakeTab{alive: []bool{true, false}, html: "<html>half rendered</html>"}

	page, err := readTab(context.Background(), tb, "https://example.org/m/1", "", logger.Nop())
	assert.ErrorIs(t, err, ErrSessionDead)
	assert.Empty(t, page.HTML)
}

func TestReadTabMissingSelector(t *testing.T) {
	tb := &fakeTab{alive: []bool{true}, html: "<html>plain</html>", waitErr: errors.New("timeout")}

	page, err := readTab(context.Background(), tb, "https://example.org/m/1", "ca-entry", logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "<html>plain</html>", page.HTML)

	tb = &fakeTab{alive: []bool{true}, waitErr: ErrSessionDead}
	_, err = readTab(context.Background(), tb, "https://example.org/m/1", "ca-entry", logger.Nop())
	assert.ErrorIs(t, err, ErrSessionDead)
}
