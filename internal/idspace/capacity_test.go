package idspace

import (
	"errors"
	"testing"
)

func TestFromBounds(t *testing.T) {
	cases := []struct {
		name                 string
		maxSpecial, maxToken int64
		want                 Policy
		wantErr              bool
	}{
		{"both unset", 0, 0, PolicyUnbounded, false},
		{"token only", 0, 5000, PolicyGlobalBound, false},
		{"special only", 100, 0, PolicySplitBound, false},
		{"both set", 100, 5000, PolicySplitBound, false},
		{"negative token", 0, -1, 0, true},
		{"token not above special", 100, 100, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := FromBounds(tc.maxSpecial, tc.maxToken)
			if tc.wantErr {
				if !errors.Is(err, ErrBadCapacity) {
					t.Fatalf("expected ErrBadCapacity, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromBounds: %v", err)
			}
			if c.Policy() != tc.want {
				t.Errorf("Policy() = %v, want %v", c.Policy(), tc.want)
			}
		})
	}
}

func TestCapacity_Bounds(t *testing.T) {
	c, err := SplitBound(100, 5000)
	if err != nil {
		t.Fatalf("SplitBound: %v", err)
	}
	if ms, ok := c.MaxSpecial(); !ok || ms != 100 {
		t.Errorf("MaxSpecial() = %d,%v", ms, ok)
	}
	if mt, ok := c.MaxToken(); !ok || mt != 5000 {
		t.Errorf("MaxToken() = %d,%v", mt, ok)
	}

	open, err := SplitBound(100, 0)
	if err != nil {
		t.Fatalf("SplitBound: %v", err)
	}
	if _, ok := open.MaxToken(); ok {
		t.Error("open split bound reports a token bound")
	}

	if _, ok := Unbounded().MaxSpecial(); ok {
		t.Error("unbounded capacity reports a special bound")
	}
}

func TestCapacity_Comparable(t *testing.T) {
	a, _ := GlobalBound(5000)
	b, _ := GlobalBound(5000)
	if a != b {
		t.Error("equal configurations compare unequal")
	}
	if a == Unbounded() {
		t.Error("distinct policies compare equal")
	}
}

func TestMapping_RoundTrip(t *testing.T) {
	m := NewMapping(3, []int64{10, 11, 12})
	if m.TokenizerID() != 3 || m.NumRegular() != 3 {
		t.Fatalf("shape = %d/%d", m.TokenizerID(), m.NumRegular())
	}
	for local := 0; local < 3; local++ {
		gid, ok := m.ToGlobal(local)
		if !ok {
			t.Fatalf("ToGlobal(%d) missing", local)
		}
		back, ok := m.ToLocal(gid)
		if !ok || back != local {
			t.Errorf("ToLocal(%d) = %d,%v, want %d", gid, back, ok, local)
		}
	}
	if _, ok := m.ToGlobal(3); ok {
		t.Error("ToGlobal accepted out-of-range local ID")
	}
	if _, ok := m.ToLocal(99); ok {
		t.Error("ToLocal accepted unknown global ID")
	}
}
