package asset_test

import (
	"fmt"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
)

func ExampleEncodeTypeCode() {
	code, _ := asset.EncodeTypeCode(2, 5)
	count, offset := asset.DecodeTypeCode(code)
	fmt.Printf("%.6f %d %d\n", code, count, offset)
	// Output:
	// 5.000005 2 5
}

func ExampleFromGraph() {
	// Start -> Option(Yes, No) -> End on "No"
	g := dialogue.New()
	_ = g.SetSpeaker(g.Start().ID, "Intro")
	opt, _ := g.AddNode(dialogue.KindOption, dialogue.Vec2{X: 300})
	_, _ = g.AddOption(opt.ID, "Yes")
	_, _ = g.AddOption(opt.ID, "No")
	end, _ := g.AddNode(dialogue.KindEnd, dialogue.Vec2{X: 600})
	_, _ = g.Connect(dialogue.Out(g.Start().ID, 0), dialogue.In(opt.ID))
	_, _ = g.Connect(dialogue.Out(opt.ID, 1), dialogue.In(end.ID))

	a, _ := asset.FromGraph(g, "")
	fmt.Println(a.DialogueName, a.NodeCount)
	fmt.Println(a.Type, a.OptionLines)
	fmt.Println(a.Target[1].Target)
	// Output:
	// Intro 3
	// [0 5 2] [Yes No]
	// [{0 -1} {1 2}]
}
