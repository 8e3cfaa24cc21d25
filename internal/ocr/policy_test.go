package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/evidence"
	"github.com/MeKo-Tech/pdfmask/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine returns canned bytes per mode.
type stubEngine struct {
	forced   []byte
	skipped  []byte
	forceErr error
	skipErr  error
	calls    []Mode
}

func (s *stubEngine) Process(_ context.Context, _ []byte, opts Options, progress ProgressFunc) ([]byte, error) {
	s.calls = append(s.calls, opts.Mode)
	if progress != nil {
		if err := progress(50, "halfway"); err != nil {
			return nil, err
		}
	}
	if opts.Mode == ModeForceOCR {
		return s.forced, s.forceErr
	}
	return s.skipped, s.skipErr
}

// pageWithText builds a fake one-page document whose text has exactly chars
// runes and hits occurrences of lit.
func pageWithText(lit string, chars, hits int) *testutil.FakeDocument {
	text := strings.Repeat(lit, hits)
	text += strings.Repeat("x", chars-len([]rune(text)))
	return &testutil.FakeDocument{Pages: []*testutil.FakePage{{PageText: text}}}
}

func newPolicyFixture(t *testing.T, beforeChars, beforeHits, afterChars, afterHits int) (*Policy, *stubEngine) {
	t.Helper()
	provider := &testutil.FakeProvider{Docs: map[string]*testutil.FakeDocument{
		"orig": pageWithText("lit", beforeChars, beforeHits),
		"ocr":  pageWithText("lit", afterChars, afterHits),
		"norm": pageWithText("lit", beforeChars, beforeHits),
	}}
	eng := &stubEngine{forced: []byte("ocr"), skipped: []byte("norm")}
	meter := evidence.NewMeter(provider)
	return NewPolicy(eng, meter, DefaultPolicyConfig()), eng
}

func TestSelect_CommitsWhenBothSignalsImprove(t *testing.T) {
	p, eng := newPolicyFixture(t, 500, 3, 650, 5)

	out, decision, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("ocr"), out)
	assert.True(t, decision.Committed)
	assert.Equal(t, 150, decision.CharDiff)
	assert.Equal(t, []Mode{ModeForceOCR}, eng.calls)
}

func TestSelect_RevertsWhenHitsDoNotImprove(t *testing.T) {
	// diff=60<80 AND hits equal; either condition alone already forces revert.
	p, eng := newPolicyFixture(t, 500, 3, 560, 3)

	out, decision, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("norm"), out)
	assert.False(t, decision.Committed)
	assert.Contains(t, decision.Reason, "literal hits")
	assert.Equal(t, []Mode{ModeForceOCR, ModeSkipText}, eng.calls)
}

func TestSelect_RevertsOnSmallCharGainDespiteMoreHits(t *testing.T) {
	p, _ := newPolicyFixture(t, 500, 3, 560, 4)

	out, decision, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("norm"), out)
	assert.False(t, decision.Committed)
	assert.Contains(t, decision.Reason, "below threshold")
}

func TestSelect_ThresholdIsConfigurable(t *testing.T) {
	provider := &testutil.FakeProvider{Docs: map[string]*testutil.FakeDocument{
		"orig": pageWithText("lit", 500, 3),
		"ocr":  pageWithText("lit", 560, 4),
	}}
	eng := &stubEngine{forced: []byte("ocr")}
	p := NewPolicy(eng, evidence.NewMeter(provider), PolicyConfig{MinCharGain: 50})

	out, decision, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, nil)
	require.NoError(t, err)
	assert.True(t, decision.Committed)
	assert.Equal(t, []byte("ocr"), out)
}

func TestSelect_ForcedPassFailureDowngradesToRevert(t *testing.T) {
	provider := &testutil.FakeProvider{Docs: map[string]*testutil.FakeDocument{
		"orig": pageWithText("lit", 500, 3),
		"norm": pageWithText("lit", 500, 3),
	}}
	eng := &stubEngine{
		forceErr: &EngineError{Op: "force-ocr", Err: errors.New("tesseract crashed")},
		skipped:  []byte("norm"),
	}
	p := NewPolicy(eng, evidence.NewMeter(provider), DefaultPolicyConfig())

	out, decision, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("norm"), out)
	assert.False(t, decision.Committed)
}

func TestSelect_RevertFailureFallsBackToInput(t *testing.T) {
	provider := &testutil.FakeProvider{Docs: map[string]*testutil.FakeDocument{
		"orig": pageWithText("lit", 500, 3),
		"ocr":  pageWithText("lit", 530, 3),
	}}
	eng := &stubEngine{
		forced:  []byte("ocr"),
		skipErr: &EngineError{Op: "skip-text", Err: errors.New("ghostscript failure")},
	}
	p := NewPolicy(eng, evidence.NewMeter(provider), DefaultPolicyConfig())

	out, decision, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), out)
	assert.False(t, decision.Committed)
}

func TestSelect_CancellationSurfaces(t *testing.T) {
	provider := &testutil.FakeProvider{Docs: map[string]*testutil.FakeDocument{
		"orig": pageWithText("lit", 500, 3),
	}}
	eng := &stubEngine{forced: []byte("ocr")}
	p := NewPolicy(eng, evidence.NewMeter(provider), DefaultPolicyConfig())

	cancelling := func(int, string) error { return cancel.ErrCancelled }
	_, _, err := p.Select(context.Background(), []byte("orig"), []string{"lit"}, cancelling)
	assert.ErrorIs(t, err, cancel.ErrCancelled)
}
