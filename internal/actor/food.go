package actor

import "strings"

// ediblePriority orders foods best-first for auto-eat; anything matching
// counts as edible for the eat behavior.
var ediblePriority = []string{
	"golden_apple",
	"cooked_beef",
	"cooked_porkchop",
	"cooked_chicken",
	"cooked_rabbit",
	"bread",
	"baked_potato",
	"apple",
	"melon",
	"cookie",
	"mushroom_stew",
	"porkchop",
	"beef",
	"chicken",
	"rabbit",
	"potato",
}

// IsEdible reports whether the named item can be consumed.
func IsEdible(name string) bool {
	for _, food := range ediblePriority {
		if strings.Contains(name, food) {
			return true
		}
	}
	return false
}

// EdibleRank returns the priority index of an edible item; lower is better,
// -1 means not edible.
func EdibleRank(name string) int {
	for i, food := range ediblePriority {
		if strings.Contains(name, food) {
			return i
		}
	}
	return -1
}
