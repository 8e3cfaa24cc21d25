package evidence

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/pdfmask/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMeasure_SumsAcrossPages(t *testing.T) {
	doc := &testutil.FakeDocument{
		Pages: []*testutil.FakePage{
			{Index: 0, PageText: "alpha beta alpha"},
			{Index: 1, PageText: "beta"},
		},
	}
	m := NewMeter(&testutil.FakeProvider{Default: doc})

	snap := m.Measure([]byte("doc"), []string{"alpha", "beta"})
	assert.Equal(t, 16+4, snap.CharCount)
	assert.Equal(t, 4, snap.LiteralHitCount)
}

func TestMeasure_HitCountIsCaseSensitive(t *testing.T) {
	doc := &testutil.FakeDocument{
		Pages: []*testutil.FakePage{{PageText: "Alpha alpha ALPHA"}},
	}
	m := NewMeter(&testutil.FakeProvider{Default: doc})

	snap := m.Measure([]byte("doc"), []string{"alpha"})
	assert.Equal(t, 1, snap.LiteralHitCount)
}

func TestMeasure_CountsRunesNotBytes(t *testing.T) {
	doc := &testutil.FakeDocument{
		Pages: []*testutil.FakePage{{PageText: "機密文件"}},
	}
	m := NewMeter(&testutil.FakeProvider{Default: doc})

	snap := m.Measure([]byte("doc"), nil)
	assert.Equal(t, 4, snap.CharCount)
}

func TestMeasure_OpenFailureYieldsZeroEvidence(t *testing.T) {
	m := NewMeter(&testutil.FakeProvider{OpenErr: errors.New("corrupt")})
	snap := m.Measure([]byte("doc"), []string{"x"})
	assert.Equal(t, Snapshot{}, snap)
}

func TestMeasure_EmptyLiteralsIgnored(t *testing.T) {
	doc := &testutil.FakeDocument{
		Pages: []*testutil.FakePage{{PageText: "abc"}},
	}
	m := NewMeter(&testutil.FakeProvider{Default: doc})

	snap := m.Measure([]byte("doc"), []string{""})
	assert.Equal(t, 0, snap.LiteralHitCount)
}
