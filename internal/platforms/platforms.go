// Package platforms is the static table of gaming platforms that results and
// sources are tagged with.
package platforms

import "strings"

const (
	PSP       = "psp"
	GBA       = "gba"
	PS2       = "ps2"
	NDS       = "nds"
	ThreeDS   = "3ds"
	Wii       = "wii"
	GameCube  = "gamecube"
	N64       = "n64"
	SNES      = "snes"
	PS1       = "ps1"
	PS3       = "ps3"
	NES       = "nes"
	GBC       = "gbc"
	Genesis   = "genesis"
	Dreamcast = "dreamcast"
	GameBoy   = "gameboy"
	Famicom   = "famicom"
	Xbox      = "xbox"
	Xbox360   = "xbox360"
)

type Platform struct {
	ID        string
	Name      string
	Vendor    string
	ShortName string
	Icon      string // relative to assets/platform
}

type entry struct {
	id        string
	name      string
	vendor    string
	shortName string
	icon      string
}

var table = []entry{
	{id: PSP, name: "PlayStation Portable", vendor: "Sony"},
	{id: GBA, name: "Game Boy Advance", vendor: "Nintendo"},
	{id: PS2, name: "PlayStation 2", vendor: "Sony"},
	{id: NDS, name: "Nintendo DS", vendor: "Nintendo"},
	{id: ThreeDS, name: "Nintendo 3DS", vendor: "Nintendo"},
	{id: Wii, name: "Wii", vendor: "Nintendo", shortName: "Wii"},
	{id: GameCube, name: "GameCube", vendor: "Nintendo", shortName: "GameCube"},
	{id: N64, name: "Nintendo 64", vendor: "Nintendo"},
	{id: SNES, name: "Super Nintendo Entertainment System", vendor: "Nintendo"},
	{id: PS1, name: "PlayStation 1", vendor: "Sony", icon: "Sony - PlayStation.svg"},
	{id: PS3, name: "PlayStation 3", vendor: "Sony"},
	{id: NES, name: "Nintendo Entertainment System", vendor: "Nintendo"},
	{id: GBC, name: "Game Boy Color", vendor: "Nintendo"},
	{id: Genesis, name: "Sega Genesis/Megadrive", vendor: "Sega", shortName: "Genesis", icon: "Sega - Mega Drive - Genesis.svg"},
	{id: Dreamcast, name: "Dreamcast", vendor: "Sega", shortName: "Dreamcast"},
	{id: GameBoy, name: "Game Boy", vendor: "Nintendo"},
	{id: Famicom, name: "Family Computer", vendor: "Nintendo", shortName: "Famicom"},
	{id: Xbox, name: "Xbox", vendor: "Microsoft"},
	{id: Xbox360, name: "Xbox 360", vendor: "Microsoft"},
}

var index = func() map[string]int {
	m := make(map[string]int, len(table))
	for i, e := range table {
		m[e.id] = i
	}
	return m
}()

func (e entry) resolve() Platform {
	p := Platform{
		ID:        e.id,
		Name:      e.name,
		Vendor:    e.vendor,
		ShortName: e.shortName,
		Icon:      e.icon,
	}
	if p.ShortName == "" {
		p.ShortName = strings.ToUpper(e.id)
	}
	if p.Icon == "" {
		p.Icon = e.vendor + " - " + e.name + ".svg"
	}
	return p
}

// Get looks up a platform by id. Unknown ids report false.
func Get(id string) (Platform, bool) {
	i, ok := index[id]
	if !ok {
		return Platform{}, false
	}
	return table[i].resolve(), true
}

// All returns every platform in table order.
func All() []Platform {
	out := make([]Platform, 0, len(table))
	for _, e := range table {
		out = append(out, e.resolve())
	}
	return out
}

func IDs() []string {
	out := make([]string, 0, len(table))
	for _, e := range table {
		out = append(out, e.id)
	}
	return out
}

func Known(id string) bool {
	_, ok := index[id]
	return ok
}
