package graph

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestValidEndpoint(t *testing.T) {
	for _, k := range EndpointKinds {
		if !k.ValidEndpoint() {
			t.Errorf("%s should be a valid endpoint kind", k)
		}
	}
	if KindTag.ValidEndpoint() {
		t.Error("tags must not be link endpoints")
	}
	if Kind("user").ValidEndpoint() {
		t.Error("unknown kind accepted as endpoint")
	}
}

func TestNormalizeTagName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Philosophy", "philosophy"},
		{"  machine learning \n", "machine learning"},
		{"already-normal", "already-normal"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTagName(tt.in); got != tt.want {
			t.Errorf("NormalizeTagName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLinkOther(t *testing.T) {
	src := Ref{Kind: KindMemo, ID: uuid.New()}
	dst := Ref{Kind: KindReference, ID: uuid.New()}
	l := &Link{Source: src, Target: dst}

	other, outgoing := l.Other(src)
	if other != dst || !outgoing {
		t.Errorf("Other(source) = %v, %v; want target, true", other, outgoing)
	}
	other, outgoing = l.Other(dst)
	if other != src || outgoing {
		t.Errorf("Other(target) = %v, %v; want source, false", other, outgoing)
	}
}

func TestBlendLinkEmbedding(t *testing.T) {
	typeVec := []float32{1, 0}
	srcVec := []float32{0, 1}
	dstVec := []float32{1, 1}

	got := BlendLinkEmbedding(typeVec, srcVec, dstVec)
	want := []float32{0.2*1 + 0.4*0 + 0.4*1, 0.2*0 + 0.4*1 + 0.4*1}
	if len(got) != len(want) {
		t.Fatalf("blend length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("blend[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGroupLinks(t *testing.T) {
	node := Ref{Kind: KindMemo, ID: uuid.New()}
	a := Ref{Kind: KindInkling, ID: uuid.New()}
	b := Ref{Kind: KindInkling, ID: uuid.New()}
	c := Ref{Kind: KindReference, ID: uuid.New()}

	supports := LinkType{ID: uuid.New(), Name: "Supports", ReverseName: "Supported by"}
	refutes := LinkType{ID: uuid.New(), Name: "Refutes", ReverseName: "Refuted by"}

	links := []*Link{
		{ID: uuid.New(), Type: supports, Source: node, Target: a},
		{ID: uuid.New(), Type: supports, Source: node, Target: b},
		{ID: uuid.New(), Type: supports, Source: c, Target: node},
		{ID: uuid.New(), Type: refutes, Source: node, Target: c},
	}

	groups := GroupLinks(node, links)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	// Outgoing "Supports" with both targets, in input order.
	g := groups[0]
	if g.Direction != DirectionOutgoing || g.Label() != "Supports" {
		t.Errorf("group 0 = %s %q", g.Direction, g.Label())
	}
	if len(g.Others) != 2 || g.Others[0] != a || g.Others[1] != b {
		t.Errorf("group 0 others = %v", g.Others)
	}

	// Incoming "Supports" reads by the reverse name.
	g = groups[1]
	if g.Direction != DirectionIncoming || g.Label() != "Supported by" {
		t.Errorf("group 1 = %s %q", g.Direction, g.Label())
	}
	if len(g.Others) != 1 || g.Others[0] != c {
		t.Errorf("group 1 others = %v", g.Others)
	}

	g = groups[2]
	if g.Label() != "Refutes" || len(g.Others) != 1 {
		t.Errorf("group 2 = %q with %d others", g.Label(), len(g.Others))
	}
}

func TestGroupLinksEmpty(t *testing.T) {
	node := Ref{Kind: KindMemo, ID: uuid.New()}
	if groups := GroupLinks(node, nil); len(groups) != 0 {
		t.Errorf("GroupLinks(nil) = %v, want empty", groups)
	}
}

func TestLinkGroupLabelFallsBackToName(t *testing.T) {
	g := &LinkGroup{
		Type:      LinkType{Name: "Mentions"},
		Direction: DirectionIncoming,
	}
	if g.Label() != "Mentions" {
		t.Errorf("Label() = %q, want forward name when no reverse name", g.Label())
	}
}
