package battle

import (
	"testing"

	"github.com/qnkhuat/chessmon/pkg/rng"
)

func TestToID(t *testing.T) {
	for in, want := range map[string]string{
		"Mr. Mime":      "mrmime",
		"Farfetch’d":    "farfetchd",
		"Thunder Punch": "thunderpunch",
		"Porygon-Z":     "porygonz",
		"Flabébé":       "flabb",
		"":              "",
	} {
		if got := ToID(in); got != want {
			t.Errorf("ToID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPack(t *testing.T) {
	c := Combatant{
		Species: "Pikachu",
		Level:   50,
		Item:    "Light Ball",
		Ability: "Static",
		Moves:   []string{"Thunderbolt", "Quick Attack"},
		Nature:  "Timid",
		EVs:     Stats{SpA: 252, Spe: 252, HP: 4},
		IVs:     MaxIVs,
	}
	want := "Pikachu||lightball|static|thunderbolt,quickattack|Timid|4,,,252,,252||||50"
	if got := c.Pack(); got != want {
		t.Errorf("Pack() = %q\nwant      %q", got, want)
	}

	c.Name, c.Shiny, c.TeraType, c.Level = "Sparky", true, "Electric", 100
	want = "Sparky|Pikachu|lightball|static|thunderbolt,quickattack|Timid|4,,,252,,252|||S||,,,,,Electric"
	if got := c.Pack(); got != want {
		t.Errorf("Pack() = %q\nwant      %q", got, want)
	}
}

func TestSeedRoundTrip(t *testing.T) {
	s := DrawSeed(rng.New(7))
	back, err := ParseSeed(s.String())
	if err != nil {
		t.Fatal(err)
	}
	if back != s {
		t.Errorf("ParseSeed(%q) = %v", s.String(), back)
	}
	if _, err := ParseSeed("1,2,3"); err == nil {
		t.Error("short seed accepted")
	}
	if _, err := ParseSeed("1,2,3,70000"); err == nil {
		t.Error("out of range word accepted")
	}
}

func TestSplitUpdate(t *testing.T) {
	lines := []string{
		"|",
		"|split|p1",
		"|-damage|p1a: A|40/100",
		"|-damage|p1a: A|40/100",
		"|turn|2",
	}
	views := splitUpdate(lines)
	if views[0] != "|\n|-damage|p1a: A|40/100\n|turn|2" {
		t.Errorf("attacker view = %q", views[0])
	}
	lines[2] = "|-damage|p1a: A|120/300"
	views = splitUpdate(lines)
	if views[0] != "|\n|-damage|p1a: A|120/300\n|turn|2" {
		t.Errorf("attacker view = %q", views[0])
	}
	if views[1] != "|\n|-damage|p1a: A|40/100\n|turn|2" {
		t.Errorf("defender view = %q", views[1])
	}
	if views[2] != views[0] {
		t.Errorf("omniscient view = %q", views[2])
	}
}

func TestRewriteChat(t *testing.T) {
	if got := rewriteChat("|chat|p1|" + chatSentinel); got != ReplayedLine {
		t.Errorf("sentinel rewritten to %q", got)
	}
	if got := rewriteChat("|chat|p1|" + chatForfeitMark + "p2"); got != ForfeitLine(SideDefender) {
		t.Errorf("forfeit rewritten to %q", got)
	}
	if got := rewriteChat("|chat|p1|hello"); got != "|chat|p1|hello" {
		t.Errorf("plain chat rewritten to %q", got)
	}
}
