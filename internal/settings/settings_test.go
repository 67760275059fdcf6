package settings

import (
	"context"
	"errors"
	"testing"
)

func TestDecode_MergesOverDefaults(t *testing.T) {
	s := Decode([]byte(`{"backgroundType":"builtin","backgroundValue":"ocean"}`))
	if s.BackgroundType != BackgroundBuiltin || s.BackgroundValue != "ocean" {
		t.Fatalf("stored fields not applied: %+v", s)
	}
	if s.Opacity != 0.6 || s.Size != SizeCover {
		t.Fatalf("defaults not kept: %+v", s)
	}
	if s.ImageURL() != Builtins["ocean"] {
		t.Fatalf("ImageURL=%q", s.ImageURL())
	}
}

func TestDecode_BadBlobFallsBack(t *testing.T) {
	for _, raw := range []string{"", "{", "null", `{"opacity":"x"}`} {
		s := Decode([]byte(raw))
		if s != Defaults() {
			t.Fatalf("raw=%q: got %+v want defaults", raw, s)
		}
	}
}

func TestNormalize_ClampsOpacity(t *testing.T) {
	s := Settings{BackgroundType: " URL ", Opacity: 3, Size: ""}
	s.Normalize()
	if s.BackgroundType != BackgroundURL || s.Opacity != 1 || s.Size != SizeCover {
		t.Fatalf("unexpected: %+v", s)
	}
	s.Opacity = -1
	s.Normalize()
	if s.Opacity != 0 {
		t.Fatalf("opacity=%v want 0", s.Opacity)
	}
}

func TestValidate(t *testing.T) {
	ok := []Settings{
		Defaults(),
		{BackgroundType: BackgroundBuiltin, BackgroundValue: "stone", Opacity: 0.2, Size: SizeTile},
		{BackgroundType: BackgroundURL, BackgroundValue: "https://example.com/a.png", Opacity: 1, Size: SizeStretch},
	}
	for _, s := range ok {
		if err := s.Validate(); err != nil {
			t.Fatalf("%+v: unexpected error %v", s, err)
		}
	}
	bad := []Settings{
		{BackgroundType: "video", Size: SizeCover},
		{BackgroundType: BackgroundBuiltin, BackgroundValue: "lava", Size: SizeCover},
		{BackgroundType: BackgroundURL, BackgroundValue: "javascript:alert(1)", Size: SizeCover},
		{BackgroundType: BackgroundURL, BackgroundValue: `https://x/a.png") ; x:url("y`, Size: SizeCover},
		{BackgroundType: BackgroundNone, Size: "huge"},
		{BackgroundType: BackgroundNone, Size: SizeCover, Opacity: 2},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%+v: expected ErrInvalid, got %v", s, err)
		}
	}
}

type memStore struct {
	raw   []byte
	saves int
}

func (m *memStore) Load(context.Context) ([]byte, error)      { return m.raw, nil }
func (m *memStore) Save(_ context.Context, raw []byte) error { m.raw = raw; m.saves++; return nil }

func TestManager_UpdateWritesThroughAndBumpsRevision(t *testing.T) {
	store := &memStore{raw: []byte(`{"size":"contain"}`)}
	m, err := NewManager(context.Background(), store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cur, rev := m.Current()
	if cur.Size != SizeContain || rev != 0 {
		t.Fatalf("initial: %+v rev=%d", cur, rev)
	}

	if _, err := m.Update(context.Background(), Settings{BackgroundType: "builtin", BackgroundValue: "lava"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if store.saves != 0 {
		t.Fatalf("invalid settings were saved")
	}

	next, err := m.Update(context.Background(), Settings{BackgroundType: "builtin", BackgroundValue: "sand", Opacity: 0.4, Size: "tile"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	cur, rev = m.Current()
	if cur != next || rev != 1 || store.saves != 1 {
		t.Fatalf("after update: %+v rev=%d saves=%d", cur, rev, store.saves)
	}
	if Decode(store.raw) != next {
		t.Fatalf("stored blob does not round-trip: %s", store.raw)
	}
}
