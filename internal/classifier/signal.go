package classifier

// AttackerKind distinguishes who landed the killing blow.
type AttackerKind string

const (
	AttackerBoss     AttackerKind = "boss"
	AttackerPlayer   AttackerKind = "player"
	AttackerCreature AttackerKind = "creature"
)

// Attacker identifies the character behind the fatal hit.
type Attacker struct {
	Name string       `json:"name"`
	Kind AttackerKind `json:"kind"`
}

// Damage holds the per-type amounts of the fatal hit. Only values > 0 count.
type Damage struct {
	Blunt     float64 `json:"blunt"`
	Pierce    float64 `json:"pierce"`
	Slash     float64 `json:"slash"`
	Fire      float64 `json:"fire"`
	Frost     float64 `json:"frost"`
	Lightning float64 `json:"lightning"`
	Poison    float64 `json:"poison"`
}

// Hit is the last recorded damage applied before health reached zero.
type Hit struct {
	Attacker    *Attacker `json:"attacker,omitempty"`
	Damage      Damage    `json:"damage"`
	Woodcutting bool      `json:"woodcutting"` // damage attributed to the woodcutting skill, i.e. a falling tree
}

// DeathSignal is the fact bundle observed when health reaches zero.
// It is built by the event source, passed by value and never stored.
type DeathSignal struct {
	Swimming bool `json:"swimming"`
	Hit      *Hit `json:"hit,omitempty"` // nil when health was removed without a recorded hit
	Falling  bool `json:"falling"`
	Freezing bool `json:"freezing"`
}

// DamageContext assembles a DeathSignal across the phases of one damage
// application. Begin it before damage is applied, record what the hooks
// observe, and End it once health is known to have reached zero.
type DamageContext struct {
	signal DeathSignal
}

// Begin opens an empty damage context.
func Begin() DamageContext {
	return DamageContext{}
}

// RecordHit stores the hit being applied; a later hit replaces an earlier one.
func (c DamageContext) RecordHit(hit Hit) DamageContext {
	h := hit
	if hit.Attacker != nil {
		a := *hit.Attacker
		h.Attacker = &a
	}
	c.signal.Hit = &h
	return c
}

func (c DamageContext) MarkSwimming() DamageContext {
	c.signal.Swimming = true
	return c
}

func (c DamageContext) MarkFalling() DamageContext {
	c.signal.Falling = true
	return c
}

func (c DamageContext) MarkFreezing() DamageContext {
	c.signal.Freezing = true
	return c
}

// End closes the context and returns the assembled signal.
func (c DamageContext) End() DeathSignal {
	return c.signal
}
