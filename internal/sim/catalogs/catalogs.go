package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ItemID is an interned item handle. Valid ids are indexes into the item
// palette built at load time; handles stay stable for the whole session
// because the palette is append-only.
type ItemID uint16

type Catalogs struct {
	Items    ItemCatalog
	Recipes  RecipeCatalog
	Machines MachineCatalog
	Biomes   BiomeCatalog
}

type ItemCatalog struct {
	Palette []string
	Index   map[string]ItemID
	Defs    map[string]ItemDef

	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID        string   `json:"id"` // "namespace:name"
	Name      string   `json:"name"`
	Short     string   `json:"short"` // display abbreviation, at most 3 chars
	StackSize int      `json:"stack_size,omitempty"`
	Color     [3]uint8 `json:"color"`
	Hardness  float64  `json:"hardness,omitempty"` // base break seconds when placed as a block
	Terrain   bool     `json:"terrain,omitempty"`  // placeable into the voxel grid
	Machine   string   `json:"machine,omitempty"`  // machine def id this item places, if any
}

const DefaultStackSize = 999

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string

	// byStationInput resolves (station, primary input) -> recipe.
	byStationInput map[string]map[string]RecipeDef
}

type RecipeDef struct {
	RecipeID  string      `json:"recipe_id"`
	Station   string      `json:"station"`
	Inputs    []ItemCount `json:"inputs"`
	Outputs   []ItemCount `json:"outputs"`
	CraftTime float64     `json:"craft_time"` // seconds
	Fuel      *FuelReq    `json:"fuel,omitempty"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type FuelReq struct {
	Item   string `json:"item"`
	Amount int    `json:"amount"`
}

type MachineCatalog struct {
	ByID   map[string]MachineDef
	Digest string
}

// MachineDef is the static descriptor shared by all machine instances of a
// kind. Process selects the per-tick behavior; Station keys the recipe table
// for recipe processors.
type MachineDef struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Item         string  `json:"item"` // inventory item that places this machine
	Process      string  `json:"process"`
	Station      string  `json:"station,omitempty"`
	BufferSize   int     `json:"buffer_size"`
	ProcessTime  float64 `json:"process_time,omitempty"` // seconds, auto_generate only
	RequiresFuel bool    `json:"requires_fuel,omitempty"`
}

const (
	ProcessAutoGenerate = "auto_generate"
	ProcessRecipe       = "recipe"
	ProcessTransfer     = "transfer"
)

type BiomeCatalog struct {
	ByID   map[string]BiomeDef
	Digest string
}

type BiomeDef struct {
	ID      string         `json:"id"`
	Weights []WeightedItem `json:"weights"` // must sum to 100
}

type WeightedItem struct {
	Item   string `json:"item"`
	Weight int    `json:"weight"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(configDir, &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(configDir, &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadMachines(configDir, &c.Machines); err != nil {
		return nil, err
	}
	if err := loadBiomes(configDir, &c.Biomes); err != nil {
		return nil, err
	}
	if err := c.validateCrossRefs(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ValidID reports whether id is in "namespace:name" form with non-empty halves.
func ValidID(id string) bool {
	i := strings.IndexByte(id, ':')
	return i > 0 && i < len(id)-1 && !strings.ContainsAny(id, " \t\n")
}

func loadItems(configDir string, out *ItemCatalog) error {
	path := filepath.Join(configDir, "items.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema(configDir, "items", raw); err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		if !ValidID(d.ID) {
			return fmt.Errorf("items.json: invalid id %q", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %q", d.ID)
		}
		if len(d.Short) > 3 {
			return fmt.Errorf("items.json: %s: short name %q exceeds 3 chars", d.ID, d.Short)
		}
		if d.StackSize == 0 {
			d.StackSize = DefaultStackSize
		}
		out.Defs[d.ID] = d
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]ItemID, len(ids))
	for i, id := range ids {
		out.Index[id] = ItemID(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// Intern appends a new item definition to the catalog. The palette is
// append-only so existing ItemIDs stay valid.
func (c *ItemCatalog) Intern(def ItemDef) (ItemID, error) {
	if !ValidID(def.ID) {
		return 0, fmt.Errorf("invalid item id %q", def.ID)
	}
	if _, exists := c.Index[def.ID]; exists {
		return 0, fmt.Errorf("item already exists: %s", def.ID)
	}
	if def.StackSize == 0 {
		def.StackSize = DefaultStackSize
	}
	id := ItemID(len(c.Palette))
	c.Palette = append(c.Palette, def.ID)
	c.Index[def.ID] = id
	c.Defs[def.ID] = def
	return id, nil
}

func (c *ItemCatalog) Lookup(id string) (ItemID, bool) {
	v, ok := c.Index[id]
	return v, ok
}

func (c *ItemCatalog) NameOf(id ItemID) string {
	if int(id) >= len(c.Palette) {
		return ""
	}
	return c.Palette[id]
}

func (c *ItemCatalog) DefOf(id ItemID) (ItemDef, bool) {
	name := c.NameOf(id)
	if name == "" {
		return ItemDef{}, false
	}
	d, ok := c.Defs[name]
	return d, ok
}

func (c *ItemCatalog) StackSizeOf(id ItemID) int {
	if d, ok := c.DefOf(id); ok {
		return d.StackSize
	}
	return DefaultStackSize
}

func loadRecipes(configDir string, out *RecipeCatalog) error {
	path := filepath.Join(configDir, "recipes.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema(configDir, "recipes", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	out.byStationInput = map[string]map[string]RecipeDef{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if len(r.Inputs) == 0 || len(r.Outputs) == 0 {
			return fmt.Errorf("recipes.json: %s: needs inputs and outputs", r.RecipeID)
		}
		if r.CraftTime <= 0 {
			return fmt.Errorf("recipes.json: %s: invalid craft_time %v", r.RecipeID, r.CraftTime)
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %q", r.RecipeID)
		}
		out.ByID[r.RecipeID] = r

		key := r.Inputs[0].Item
		byInput := out.byStationInput[r.Station]
		if byInput == nil {
			byInput = map[string]RecipeDef{}
			out.byStationInput[r.Station] = byInput
		}
		if prev, dup := byInput[key]; dup {
			return fmt.Errorf("recipes.json: station %s input %s claimed by both %s and %s",
				r.Station, key, prev.RecipeID, r.RecipeID)
		}
		byInput[key] = r
	}
	return nil
}

// Find resolves the recipe for a station and its primary input item.
func (c *RecipeCatalog) Find(station, input string) (RecipeDef, bool) {
	byInput := c.byStationInput[station]
	if byInput == nil {
		return RecipeDef{}, false
	}
	r, ok := byInput[input]
	return r, ok
}

// ForStation returns the station's recipes sorted by recipe id.
func (c *RecipeCatalog) ForStation(station string) []RecipeDef {
	var out []RecipeDef
	for _, r := range c.ByID {
		if r.Station == station {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipeID < out[j].RecipeID })
	return out
}

func loadMachines(configDir string, out *MachineCatalog) error {
	path := filepath.Join(configDir, "machines.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema(configDir, "machines", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []MachineDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("machines.json: %w", err)
	}
	out.ByID = map[string]MachineDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("machines.json: empty id")
		}
		switch d.Process {
		case ProcessAutoGenerate, ProcessRecipe, ProcessTransfer:
		default:
			return fmt.Errorf("machines.json: %s: unknown process %q", d.ID, d.Process)
		}
		if d.Process == ProcessRecipe && d.Station == "" {
			return fmt.Errorf("machines.json: %s: recipe machine needs a station", d.ID)
		}
		if d.Process != ProcessTransfer && d.BufferSize <= 0 {
			return fmt.Errorf("machines.json: %s: invalid buffer_size %d", d.ID, d.BufferSize)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("machines.json: duplicate id %q", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadBiomes(configDir string, out *BiomeCatalog) error {
	path := filepath.Join(configDir, "biomes.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema(configDir, "biomes", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []BiomeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("biomes.json: %w", err)
	}
	out.ByID = map[string]BiomeDef{}
	for _, b := range defs {
		if b.ID == "" {
			return fmt.Errorf("biomes.json: empty id")
		}
		sum := 0
		for _, w := range b.Weights {
			sum += w.Weight
		}
		if len(b.Weights) > 0 && sum != 100 {
			return fmt.Errorf("biomes.json: %s: weights sum to %d, want 100", b.ID, sum)
		}
		if _, dup := out.ByID[b.ID]; dup {
			return fmt.Errorf("biomes.json: duplicate id %q", b.ID)
		}
		out.ByID[b.ID] = b
	}
	return nil
}

func (c *Catalogs) validateCrossRefs() error {
	itemOK := func(id string) bool {
		_, ok := c.Items.Index[id]
		return ok
	}
	for _, r := range c.Recipes.ByID {
		for _, in := range r.Inputs {
			if !itemOK(in.Item) {
				return fmt.Errorf("recipe %s: unknown input item %q", r.RecipeID, in.Item)
			}
		}
		for _, o := range r.Outputs {
			if !itemOK(o.Item) {
				return fmt.Errorf("recipe %s: unknown output item %q", r.RecipeID, o.Item)
			}
		}
		if r.Fuel != nil && !itemOK(r.Fuel.Item) {
			return fmt.Errorf("recipe %s: unknown fuel item %q", r.RecipeID, r.Fuel.Item)
		}
	}
	for _, m := range c.Machines.ByID {
		if m.Item != "" && !itemOK(m.Item) {
			return fmt.Errorf("machine %s: unknown item %q", m.ID, m.Item)
		}
	}
	for _, b := range c.Biomes.ByID {
		for _, w := range b.Weights {
			if !itemOK(w.Item) {
				return fmt.Errorf("biome %s: unknown item %q", b.ID, w.Item)
			}
		}
	}
	return nil
}
