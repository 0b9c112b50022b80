package main

import "fmt"

// Resource is a currency type dropped by spawners
type Resource uint8

const (
	Iron Resource = iota
	Gold
	Diamond
	Emerald
	resourceCount
)

var resourceNames = [resourceCount]string{"iron", "gold", "diamond", "emerald"}

func (r Resource) String() string {
	if r < resourceCount {
		return resourceNames[r]
	}
	return "unknown"
}

// MarshalText encodes the resource by name (also used for JSON map keys)
func (r Resource) MarshalText() ([]byte, error) {
	if r >= resourceCount {
		return nil, fmt.Errorf("unknown resource %d", r)
	}
	return []byte(resourceNames[r]), nil
}

// UnmarshalText decodes a resource name
func (r *Resource) UnmarshalText(b []byte) error {
	for i, name := range resourceNames {
		if name == string(b) {
			*r = Resource(i)
			return nil
		}
	}
	return fmt.Errorf("unknown resource %q", b)
}

// Item is the closed set of block and item kinds
type Item uint8

const (
	ItemNone Item = iota
	ItemGrass
	ItemWool
	ItemWood
	ItemEndStone
	ItemGlass
	ItemObsidian
	ItemBed
	ItemWoodSword
	ItemIronSword
	ItemDiamondSword
	ItemEnderPearl
	ItemFireball
	itemCount
)

// ItemDef is the static descriptor of an item kind
type ItemDef struct {
	Key          string           `json:"key"`
	Name         string           `json:"name"`
	Cost         map[Resource]int `json:"cost,omitempty"` // nil = not for sale
	BreakSeconds float64          `json:"break,omitempty"`
	BuyAmount    int              `json:"amount,omitempty"`
	Placeable    bool             `json:"placeable,omitempty"`
	Weapon       bool             `json:"weapon,omitempty"`
	Damage       int              `json:"damage,omitempty"`
	Throwable    bool             `json:"throwable,omitempty"`
}

// ItemCatalog is indexed by Item
var ItemCatalog = [itemCount]ItemDef{
	ItemNone:         {Key: "none", Name: "Air"},
	ItemGrass:        {Key: "grass", Name: "Grass", Cost: map[Resource]int{Iron: 4}, BreakSeconds: 0.6, BuyAmount: 16, Placeable: true},
	ItemWool:         {Key: "wool", Name: "Wool", Cost: map[Resource]int{Iron: 4}, BreakSeconds: 0.3, BuyAmount: 16, Placeable: true},
	ItemWood:         {Key: "wood", Name: "Wood Planks", Cost: map[Resource]int{Gold: 4}, BreakSeconds: 1.5, BuyAmount: 16, Placeable: true},
	ItemEndStone:     {Key: "end_stone", Name: "End Stone", Cost: map[Resource]int{Iron: 24}, BreakSeconds: 2.0, BuyAmount: 12, Placeable: true},
	ItemGlass:        {Key: "glass", Name: "Blast Glass", Cost: map[Resource]int{Iron: 12}, BreakSeconds: 0.3, BuyAmount: 4, Placeable: true},
	ItemObsidian:     {Key: "obsidian", Name: "Obsidian", Cost: map[Resource]int{Emerald: 4}, BreakSeconds: 8.0, BuyAmount: 4, Placeable: true},
	ItemBed:          {Key: "bed", Name: "Bed", BreakSeconds: 0.5},
	ItemWoodSword:    {Key: "wood_sword", Name: "Wooden Sword", Cost: map[Resource]int{Iron: 10}, BuyAmount: 1, Weapon: true, Damage: 2},
	ItemIronSword:    {Key: "iron_sword", Name: "Iron Sword", Cost: map[Resource]int{Gold: 7}, BuyAmount: 1, Weapon: true, Damage: 3},
	ItemDiamondSword: {Key: "diamond_sword", Name: "Diamond Sword", Cost: map[Resource]int{Emerald: 4}, BuyAmount: 1, Weapon: true, Damage: 4},
	ItemEnderPearl:   {Key: "ender_pearl", Name: "Ender Pearl", Cost: map[Resource]int{Emerald: 4}, BuyAmount: 1, Throwable: true},
	ItemFireball:     {Key: "fireball", Name: "Fireball", Cost: map[Resource]int{Iron: 40}, BuyAmount: 1, Throwable: true},
}

var itemByKey map[string]Item

func init() {
	itemByKey = make(map[string]Item, itemCount)
	for i := range ItemCatalog {
		itemByKey[ItemCatalog[i].Key] = Item(i)
	}
}

// Def returns the descriptor for the item
func (it Item) Def() ItemDef {
	if it < itemCount {
		return ItemCatalog[it]
	}
	return ItemCatalog[ItemNone]
}

// Valid reports whether it names a known item other than air
func (it Item) Valid() bool {
	return it > ItemNone && it < itemCount
}

func (it Item) String() string {
	return it.Def().Key
}

// MarshalText encodes the item by key
func (it Item) MarshalText() ([]byte, error) {
	return []byte(it.Def().Key), nil
}

// UnmarshalText decodes an item key
func (it *Item) UnmarshalText(b []byte) error {
	v, ok := itemByKey[string(b)]
	if !ok {
		return fmt.Errorf("unknown item %q", b)
	}
	*it = v
	return nil
}

// CatalogEntry is the shop view of the catalog sent in the welcome message
type CatalogEntry struct {
	Item Item `json:"item"`
	ItemDef
}

// ShopCatalog lists every purchasable item in catalog order
func ShopCatalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, itemCount)
	for i := ItemNone + 1; i < itemCount; i++ {
		if ItemCatalog[i].Cost == nil {
			continue
		}
		out = append(out, CatalogEntry{Item: i, ItemDef: ItemCatalog[i]})
	}
	return out
}
