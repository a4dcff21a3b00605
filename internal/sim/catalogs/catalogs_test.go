package catalogs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const configDir = "../../../configs"

func loadOrFatal(t *testing.T) *Catalogs {
	t.Helper()
	c, err := Load(configDir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

// copyConfigs clones the shipped config dir into a temp dir so a test can
// corrupt one file without touching the rest.
func copyConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir(configDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, de := range entries {
		b, err := os.ReadFile(filepath.Join(configDir, de.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", de.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, de.Name()), b, 0o644); err != nil {
			t.Fatalf("write %s: %v", de.Name(), err)
		}
	}
	return dir
}

func TestLoadShippedConfigs(t *testing.T) {
	c := loadOrFatal(t)

	if len(c.Items.Palette) == 0 {
		t.Fatalf("empty item palette")
	}
	if !sort.StringsAreSorted(c.Items.Palette) {
		t.Fatalf("palette not sorted: %v", c.Items.Palette)
	}
	for _, d := range []string{c.Items.PaletteDigest, c.Items.DefsDigest, c.Recipes.Digest, c.Machines.Digest, c.Biomes.Digest} {
		if len(d) != 64 {
			t.Fatalf("bad digest %q", d)
		}
	}

	for _, id := range []string{"core:iron_ore", "core:coal", "core:conveyor", "core:furnace", "core:stone_pickaxe"} {
		if _, ok := c.Items.Lookup(id); !ok {
			t.Fatalf("missing item %s", id)
		}
	}
	for _, id := range []string{"core:miner", "core:furnace", "core:crusher", "core:assembler"} {
		if _, ok := c.Machines.ByID[id]; !ok {
			t.Fatalf("missing machine %s", id)
		}
	}
	for _, id := range []string{"iron", "copper", "coal", "mixed"} {
		if _, ok := c.Biomes.ByID[id]; !ok {
			t.Fatalf("missing biome %s", id)
		}
	}
}

func TestItemHandleRoundTrip(t *testing.T) {
	c := loadOrFatal(t)

	id, ok := c.Items.Lookup("core:iron_ore")
	if !ok {
		t.Fatalf("lookup failed")
	}
	if got := c.Items.NameOf(id); got != "core:iron_ore" {
		t.Fatalf("NameOf: %q", got)
	}
	def, ok := c.Items.DefOf(id)
	if !ok || def.ID != "core:iron_ore" {
		t.Fatalf("DefOf: %+v ok=%v", def, ok)
	}
	if got := c.Items.NameOf(ItemID(len(c.Items.Palette))); got != "" {
		t.Fatalf("out-of-range NameOf: %q", got)
	}
	if c.Items.StackSizeOf(id) <= 0 {
		t.Fatalf("stack size must be positive")
	}
	if got := c.Items.StackSizeOf(ItemID(60000)); got != DefaultStackSize {
		t.Fatalf("unknown item stack size %d", got)
	}
}

func TestRecipeFindByStationAndInput(t *testing.T) {
	c := loadOrFatal(t)

	r, ok := c.Recipes.Find("furnace", "core:iron_ore")
	if !ok {
		t.Fatalf("no furnace recipe for iron ore")
	}
	if r.RecipeID != "smelt_iron" {
		t.Fatalf("recipe %s", r.RecipeID)
	}
	if len(r.Outputs) == 0 || r.Outputs[0].Item != "core:iron_ingot" {
		t.Fatalf("outputs %+v", r.Outputs)
	}
	if r.Fuel == nil || r.Fuel.Item != "core:coal" {
		t.Fatalf("fuel %+v", r.Fuel)
	}

	if _, ok := c.Recipes.Find("furnace", "core:iron_gear"); ok {
		t.Fatalf("gears should not smelt")
	}
	if _, ok := c.Recipes.Find("no_such_station", "core:iron_ore"); ok {
		t.Fatalf("unknown station matched")
	}

	smelts := c.Recipes.ForStation("furnace")
	if len(smelts) != 4 {
		t.Fatalf("furnace recipes: %d", len(smelts))
	}
	for i := 1; i < len(smelts); i++ {
		if smelts[i-1].RecipeID >= smelts[i].RecipeID {
			t.Fatalf("ForStation not sorted: %s >= %s", smelts[i-1].RecipeID, smelts[i].RecipeID)
		}
	}
}

func TestInternAppendsToPalette(t *testing.T) {
	c := loadOrFatal(t)

	before := len(c.Items.Palette)
	id, err := c.Items.Intern(ItemDef{ID: "mods:widget", Name: "Widget", Short: "WD"})
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	if int(id) != before {
		t.Fatalf("interned id %d, want %d", id, before)
	}
	if got := c.Items.NameOf(id); got != "mods:widget" {
		t.Fatalf("NameOf: %q", got)
	}
	if c.Items.StackSizeOf(id) != DefaultStackSize {
		t.Fatalf("default stack size not applied")
	}

	if _, err := c.Items.Intern(ItemDef{ID: "mods:widget"}); err == nil {
		t.Fatalf("duplicate intern accepted")
	}
	if _, err := c.Items.Intern(ItemDef{ID: "no-namespace"}); err == nil {
		t.Fatalf("invalid id accepted")
	}
}

func TestValidID(t *testing.T) {
	cases := []struct {
		id string
		ok bool
	}{
		{"core:iron_ore", true},
		{"mods:x", true},
		{"plain", false},
		{":name", false},
		{"ns:", false},
		{"", false},
		{"core:iron ore", false},
	}
	for _, tc := range cases {
		if got := ValidID(tc.id); got != tc.ok {
			t.Fatalf("ValidID(%q) = %v, want %v", tc.id, got, tc.ok)
		}
	}
}

func TestLoadRejectsBadBiomeWeights(t *testing.T) {
	dir := copyConfigs(t)
	b, err := os.ReadFile(filepath.Join(dir, "biomes.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	mangled := strings.Replace(string(b), `"weight": 70`, `"weight": 71`, 1)
	if mangled == string(b) {
		t.Fatalf("fixture drift: expected a 70 weight in biomes.json")
	}
	if err := os.WriteFile(filepath.Join(dir, "biomes.json"), []byte(mangled), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "weights sum") {
		t.Fatalf("bad weights accepted: %v", err)
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	dir := copyConfigs(t)
	// An item without the required id field fails schema validation before
	// any structural checks run.
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(`[{"name":"Nameless"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("schema violation accepted")
	}
}

func TestLoadRejectsDanglingRecipeItem(t *testing.T) {
	dir := copyConfigs(t)
	b, err := os.ReadFile(filepath.Join(dir, "recipes.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	mangled := strings.Replace(string(b), "core:iron_ingot", "core:unobtainium", 1)
	if mangled == string(b) {
		t.Fatalf("fixture drift: expected core:iron_ingot in recipes.json")
	}
	if err := os.WriteFile(filepath.Join(dir, "recipes.json"), []byte(mangled), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "unobtainium") {
		t.Fatalf("dangling item reference accepted: %v", err)
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("missing config dir accepted")
	}
}
