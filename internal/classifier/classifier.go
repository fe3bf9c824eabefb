package classifier

import "darwinawards/internal/shared"

const (
	CategoryDrowning  shared.Category = "death by drowning"
	CategoryBoss      shared.Category = "death by boss"
	CategoryPlayer    shared.Category = "death by player"
	CategoryCreature  shared.Category = "death by creature"
	CategoryPhysical  shared.Category = "death by physical"
	CategoryBlunt     shared.Category = "death by blunt"
	CategoryPierce    shared.Category = "death by pierce"
	CategorySlash     shared.Category = "death by slash"
	CategoryElemental shared.Category = "death by elemental"
	CategoryFire      shared.Category = "death by fire"
	CategoryFrost     shared.Category = "death by frost"
	CategoryLightning shared.Category = "death by lightning"
	CategoryPoison    shared.Category = "death by poison"
	CategoryTree      shared.Category = "death by tree"
	CategoryGravity   shared.Category = "death by gravity"
)

// Classify maps a death signal to the categories it satisfies.
// An empty result means no cause could be determined and nothing should be broadcast.
func Classify(sig DeathSignal) shared.CategorySet {
	// drowning overrides every other cause
	if sig.Swimming {
		return shared.NewCategorySet(CategoryDrowning)
	}

	set := shared.NewCategorySet()
	if sig.Hit == nil {
		return set
	}
	hit := sig.Hit

	if hit.Attacker != nil {
		switch hit.Attacker.Kind {
		case AttackerBoss:
			set.Add(CategoryBoss)
		case AttackerPlayer:
			set.Add(CategoryPlayer)
		default:
			set.Add(CategoryCreature)
		}
	}

	addDamage(set, hit.Damage.Blunt, CategoryBlunt, CategoryPhysical)
	addDamage(set, hit.Damage.Pierce, CategoryPierce, CategoryPhysical)
	addDamage(set, hit.Damage.Slash, CategorySlash, CategoryPhysical)
	addDamage(set, hit.Damage.Fire, CategoryFire, CategoryElemental)
	addDamage(set, hit.Damage.Frost, CategoryFrost, CategoryElemental)
	addDamage(set, hit.Damage.Lightning, CategoryLightning, CategoryElemental)
	addDamage(set, hit.Damage.Poison, CategoryPoison, CategoryElemental)

	if hit.Woodcutting {
		set.Add(CategoryTree)
	}
	if sig.Falling {
		set.Add(CategoryGravity)
	}
	if sig.Freezing {
		set.Add(CategoryFrost)
	}

	return set
}

func addDamage(set shared.CategorySet, amount float64, specific, umbrella shared.Category) {
	if amount > 0 {
		set.Add(specific)
		set.Add(umbrella)
	}
}

// Enemy returns the attacker name used for the {enemy} placeholder.
// Drowning deaths are announced without an enemy even if a hit was recorded.
func Enemy(sig DeathSignal) (string, bool) {
	if sig.Swimming || sig.Hit == nil || sig.Hit.Attacker == nil {
		return "", false
	}
	return sig.Hit.Attacker.Name, true
}
