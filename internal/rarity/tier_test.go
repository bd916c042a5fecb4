package rarity

import (
	"encoding/json"
	"testing"
)

func TestDefaultTableValid(t *testing.T) {
	tb := DefaultTable()
	if err := tb.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestValidateRejectsInvertedWeights(t *testing.T) {
	tb := DefaultTable()
	tb[Legendary].BaseWeight = tb[Epic].BaseWeight * 2
	if err := tb.Validate(); err == nil {
		t.Fatal("expected error when legendary outweighs epic")
	}
}

func TestValidateRejectsGrowingCommon(t *testing.T) {
	tb := DefaultTable()
	tb[Common].Growth = 0.2
	if err := tb.Validate(); err == nil {
		t.Fatal("expected error when common tier grows")
	}
}

func TestValidateRejectsEmptyRanges(t *testing.T) {
	tb := DefaultTable()
	tb[Rare].Colors = nil
	tb[Epic].SizeMin = 50
	if err := tb.Validate(); err == nil {
		t.Fatal("expected error for empty colours and inverted sizes")
	}
}

func TestTierNamesRoundTrip(t *testing.T) {
	for _, tier := range All() {
		got, err := Parse(tier.String())
		if err != nil {
			t.Fatalf("parse %s: %v", tier, err)
		}
		if got != tier {
			t.Errorf("parse %s: got %s", tier, got)
		}
	}
	if _, err := Parse("kraken"); err == nil {
		t.Error("expected error for unknown tier")
	}
	if got, _ := Parse("  LEGENDARY "); got != Legendary {
		t.Errorf("case-insensitive parse: got %s", got)
	}
}

func TestTierJSONUsesNames(t *testing.T) {
	data, err := json.Marshal(map[string]Tier{"best": Mythic})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"best":"mythic"}` {
		t.Fatalf("unexpected JSON %s", data)
	}

	var back struct {
		Best Tier `json:"best"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Best != Mythic {
		t.Fatalf("got %s", back.Best)
	}
}

func TestInvalidTierString(t *testing.T) {
	if s := Tier(9).String(); s != "tier(9)" {
		t.Errorf("got %q", s)
	}
	if Tier(9).Valid() {
		t.Error("tier 9 should be invalid")
	}
}
