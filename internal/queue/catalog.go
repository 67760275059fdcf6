package queue

type GroupKind string

const (
	GroupLand     GroupKind = "land"
	GroupNaval    GroupKind = "naval"
	GroupMythical GroupKind = "mythical"
	GroupOther    GroupKind = "other"
)

type Catalog struct {
	Kind  GroupKind
	Title string
	Units []UnitType
}

var catalogs = []Catalog{
	{
		Kind:  GroupLand,
		Title: "Land Units",
		Units: []UnitType{
			"sword", "slinger", "archer", "hoplite",
			"rider", "chariot", "catapult",
		},
	},
	{
		Kind:  GroupNaval,
		Title: "Naval Units",
		Units: []UnitType{
			"big_transporter", "small_transporter",
			"bireme", "attack_ship", "demolition_ship",
			"trireme", "colonize_ship",
		},
	},
	{
		Kind:  GroupMythical,
		Title: "Mythical Units",
		Units: []UnitType{
			"minotaur", "manticore", "medusa", "harpy",
			"cyclops", "centaur", "pegasus",
			"hydra", "cerberus", "fury", "griffin",
			"satyr", "spartoi", "ladon", "calydonian_boar",
			"godsent",
		},
	},
}

const otherTitle = "Other Units"

// unitRank maps every catalogued unit to its global display position.
var unitRank = func() map[UnitType]int {
	m := map[UnitType]int{}
	i := 0
	for _, c := range catalogs {
		for _, u := range c.Units {
			m[u] = i
			i++
		}
	}
	return m
}()

// Catalogs returns the fixed display groups in presentation order.
func Catalogs() []Catalog {
	out := make([]Catalog, len(catalogs))
	for i, c := range catalogs {
		out[i] = Catalog{Kind: c.Kind, Title: c.Title, Units: append([]UnitType(nil), c.Units...)}
	}
	return out
}

func IsKnownUnit(u UnitType) bool {
	_, ok := unitRank[u]
	return ok
}
