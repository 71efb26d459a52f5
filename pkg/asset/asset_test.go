package asset

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// buildBranching returns Start -> Dialogue(Bob, Hi) -> Option(2) -> End A / End B.
func buildBranching(t *testing.T) *dialogue.Graph {
	t.Helper()
	g := dialogue.New()
	s := dialogue.NewSession(g)
	add := func(k dialogue.Kind, x float64) dialogue.NodeID {
		res, err := s.Apply(dialogue.AddNodeCmd(k, dialogue.Vec2{X: x, Y: 100}))
		if err != nil {
			t.Fatal(err)
		}
		return res.Node
	}
	bob := add(dialogue.KindDialogue, 250)
	opt := add(dialogue.KindOption, 550)
	endA := add(dialogue.KindEnd, 850)
	endB := add(dialogue.KindEnd, 850)

	_, err := s.ApplyAll([]dialogue.Command{
		dialogue.SetSpeakerCmd(g.Start().ID, "Greeting"),
		dialogue.SetSpeakerCmd(bob, "Bob"),
		dialogue.SetLineCmd(bob, "Hi"),
		dialogue.SetSpeakerCmd(opt, "Player"),
		dialogue.SetLineCmd(opt, "Where to?"),
		dialogue.AddOptionCmd(opt, "Path A"),
		dialogue.AddOptionCmd(opt, "Path B"),
		dialogue.SetSpeakerCmd(endA, "path_a"),
		dialogue.SetSpeakerCmd(endB, "path_b"),
		dialogue.ConnectCmd(g.Start().ID, 0, bob),
		dialogue.ConnectCmd(bob, 0, opt),
		dialogue.ConnectCmd(opt, 0, endA),
		dialogue.ConnectCmd(opt, 1, endB),
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestFromGraph(t *testing.T) {
	g := buildBranching(t)
	a, err := FromGraph(g, "")
	if err != nil {
		t.Fatal(err)
	}

	if a.DialogueName != "Greeting" {
		t.Errorf("DialogueName = %q, want Greeting", a.DialogueName)
	}
	if a.NodeCount != 5 {
		t.Fatalf("NodeCount = %d, want 5", a.NodeCount)
	}

	wantType := []float64{CodeStart, CodeDialogue, 3 + 2, CodeEnd, CodeEnd}
	if !reflect.DeepEqual(a.Type, wantType) {
		t.Errorf("Type = %v, want %v", a.Type, wantType)
	}
	wantTargets := []TargetList{
		{Target: []Vector2{{X: 0, Y: 1}}},
		{Target: []Vector2{{X: 0, Y: 2}}},
		{Target: []Vector2{{X: 0, Y: 3}, {X: 1, Y: 4}}},
		{Target: []Vector2{{X: 0, Y: NoTarget}}},
		{Target: []Vector2{{X: 0, Y: NoTarget}}},
	}
	if !reflect.DeepEqual(a.Target, wantTargets) {
		t.Errorf("Target = %+v, want %+v", a.Target, wantTargets)
	}
	if !reflect.DeepEqual(a.OptionLines, []string{"Path A", "Path B"}) {
		t.Errorf("OptionLines = %q", a.OptionLines)
	}
	if a.Speakers[1] != "Bob" || a.Lines[1] != "Hi" {
		t.Errorf("node 1 = %q / %q", a.Speakers[1], a.Lines[1])
	}
	if a.Dimensions[2] != (Vector2{X: 250, Y: 150}) {
		t.Errorf("option dimensions = %v", a.Dimensions[2])
	}
}

func TestFromGraphOptionOffsets(t *testing.T) {
	g := dialogue.New()
	first, _ := g.AddNode(dialogue.KindOption, dialogue.Vec2{})
	empty, _ := g.AddNode(dialogue.KindOption, dialogue.Vec2{})
	second, _ := g.AddNode(dialogue.KindOption, dialogue.Vec2{})
	for _, o := range []string{"a", "b", "c"} {
		_, _ = g.AddOption(first.ID, o)
	}
	_, _ = g.AddOption(second.ID, "d")
	_ = empty

	a, err := FromGraph(g, "x")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		idx          int
		count, start int
	}{
		{1, 3, 0},
		{2, 0, 3},
		{3, 1, 3},
	}
	for _, tt := range tests {
		n, o := DecodeTypeCode(a.Type[tt.idx])
		if n != tt.count || o != tt.start {
			t.Errorf("node %d: (count, offset) = (%d, %d), want (%d, %d)", tt.idx, n, o, tt.count, tt.start)
		}
	}
	if len(a.Target[2].Target) != 0 {
		t.Errorf("option without options wrote targets: %v", a.Target[2])
	}
}

func TestDialogueName(t *testing.T) {
	g := dialogue.New()
	tests := []struct {
		name   string
		start  string
		custom string
		want   string
	}{
		{"custom wins", "Intro", "Autosave", "Autosave"},
		{"start text", "Intro", "", "Intro"},
		{"untitled", "", "", UntitledName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = g.SetSpeaker(g.Start().ID, tt.start)
			if got := DialogueName(g, tt.custom); got != tt.want {
				t.Errorf("DialogueName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetRoundTrip(t *testing.T) {
	g := buildBranching(t)
	first, err := FromGraph(g, "")
	if err != nil {
		t.Fatal(err)
	}

	back, err := ToGraph(first)
	if err != nil {
		t.Fatalf("ToGraph: %v", err)
	}
	second, err := FromGraph(back, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second serialization differs:\nfirst  %+v\nsecond %+v", first, second)
	}

	opt := back.NodeAt(2)
	if !reflect.DeepEqual(opt.Options, []string{"Path A", "Path B"}) {
		t.Errorf("options = %q", opt.Options)
	}
	for i, want := range []dialogue.NodeID{IndexID(3), IndexID(4)} {
		if to, ok := back.Target(opt.ID, i); !ok || to != want {
			t.Errorf("option %d -> %s, want %s", i, to, want)
		}
	}
	if back.NodeAt(3).Speaker != "path_a" {
		t.Errorf("end flag = %q", back.NodeAt(3).Speaker)
	}
}

func TestToGraphDropsEndAndStartLines(t *testing.T) {
	g := dialogue.New()
	end, _ := g.AddNode(dialogue.KindEnd, dialogue.Vec2{})
	_ = g.SetLine(end.ID, "ignored")
	_ = g.SetLine(g.Start().ID, "ignored")

	a, _ := FromGraph(g, "")
	back, err := ToGraph(a)
	if err != nil {
		t.Fatal(err)
	}
	if back.NodeAt(0).Line != "" || back.NodeAt(1).Line != "" {
		t.Errorf("lines restored on start/end: %q %q", back.NodeAt(0).Line, back.NodeAt(1).Line)
	}
}

func TestToGraphCorrupt(t *testing.T) {
	valid := func() *Asset {
		a, err := FromGraph(buildBranching(t), "")
		if err != nil {
			t.Fatal(err)
		}
		return a
	}

	tests := []struct {
		name   string
		mutate func(a *Asset)
	}{
		{"short speakers", func(a *Asset) { a.Speakers = a.Speakers[:2] }},
		{"node count", func(a *Asset) { a.NodeCount = 9 }},
		{"target out of range", func(a *Asset) { a.Target[1].Target[0].Y = 42 }},
		{"local output out of range", func(a *Asset) { a.Target[1].Target[0].X = 3 }},
		{"link into start", func(a *Asset) { a.Target[1].Target[0].Y = 0 }},
		{"self link", func(a *Asset) { a.Target[1].Target[0].Y = 1 }},
		{"fractional target", func(a *Asset) { a.Target[1].Target[0].Y = 1.5 }},
		{"option pool overrun", func(a *Asset) { a.OptionLines = a.OptionLines[:1] }},
		{"bad type code", func(a *Asset) { a.Type[1] = 1.25 }},
		{"no start", func(a *Asset) { a.Type[0] = CodeDialogue }},
		{"two starts", func(a *Asset) { a.Type[1] = CodeStart }},
		{"shared input", func(a *Asset) { a.Target[0].Target[0].Y = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.mutate(a)
			g, err := ToGraph(a)
			if err == nil {
				t.Fatalf("ToGraph succeeded with %d nodes", g.NodeCount())
			}
			if !errors.Is(err, errors.ErrCodeCorruptAsset) {
				t.Errorf("code = %q, want CORRUPT_ASSET (%v)", errors.GetCode(err), err)
			}
		})
	}
}

func TestToGraphSharedInputReason(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Asset)
		want   string
	}{
		{"start and dialogue into option", func(a *Asset) { a.Target[0].Target[0].Y = 2 }, "node 2 is already linked from node 0"},
		{"both options into one end", func(a *Asset) { a.Target[2].Target[1].Y = 3 }, "node 3 is already linked from node 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := FromGraph(buildBranching(t), "")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(a)
			_, err = ToGraph(a)
			if !errors.Is(err, errors.ErrCodeCorruptAsset) {
				t.Fatalf("err = %v, want CORRUPT_ASSET", err)
			}
			for _, want := range []string{tt.want, "an input connector accepts one connection"} {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	g := buildBranching(t)
	doc := DocumentFromGraph(g, "")
	if doc.Name != "Greeting" || len(doc.Nodes) != 5 {
		t.Fatalf("doc = %s with %d nodes", doc.Name, len(doc.Nodes))
	}
	if !reflect.DeepEqual(doc.Nodes[2].Targets, []int{3, 4}) {
		t.Errorf("option targets = %v", doc.Nodes[2].Targets)
	}
	if doc.Nodes[3].Targets != nil {
		t.Errorf("end targets = %v, want none", doc.Nodes[3].Targets)
	}

	back, err := doc.Graph()
	if err != nil {
		t.Fatal(err)
	}
	if again := DocumentFromGraph(back, ""); !reflect.DeepEqual(doc, again) {
		t.Errorf("round trip differs:\n%+v\n%+v", doc, again)
	}
}

func TestDocumentCorrupt(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{"no nodes", Document{Version: 1}},
		{"target out of range", Document{Nodes: []DocumentNode{
			{Kind: dialogue.KindStart, Targets: []int{5}},
		}}},
		{"too many targets", Document{Nodes: []DocumentNode{
			{Kind: dialogue.KindStart, Targets: []int{-1, -1}},
		}}},
		{"options on dialogue", Document{Nodes: []DocumentNode{
			{Kind: dialogue.KindStart},
			{Kind: dialogue.KindDialogue, Options: []string{"a"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.doc.Graph(); !errors.Is(err, errors.ErrCodeCorruptAsset) {
				t.Errorf("err = %v, want CORRUPT_ASSET", err)
			}
		})
	}

	future := Document{Version: DocumentVersion + 1, Nodes: []DocumentNode{{Kind: dialogue.KindStart}}}
	if _, err := future.Graph(); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("future version err = %v", err)
	}
}
