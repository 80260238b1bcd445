// Package event contains the canonical combat event model shared by every
// analysis module.
package event

import "strings"

// Kind identifies the type of a combat event.
type Kind string

// Kinds recorded by the combat log.
const (
	KindDamage       Kind = "damage"
	KindHeal         Kind = "heal"
	KindAbsorbed     Kind = "absorbed"
	KindBeginCast    Kind = "begincast"
	KindCast         Kind = "cast"
	KindApplyBuff    Kind = "applybuff"
	KindRemoveBuff   Kind = "removebuff"
	KindApplyDebuff  Kind = "applydebuff"
	KindRemoveDebuff Kind = "removedebuff"
	KindEnergize     Kind = "energize"
	KindDeath        Kind = "death"
)

// Kinds fabricated by analysis modules. They never appear in a raw log.
const (
	KindGlobalCooldown Kind = "globalcooldown"
	KindBeginChannel   Kind = "beginchannel"
	KindEndChannel     Kind = "endchannel"
)

var synthetic = map[Kind]struct{}{
	KindGlobalCooldown: {},
	KindBeginChannel:   {},
	KindEndChannel:     {},
}

// IsValid reports whether the kind is usable.
func (k Kind) IsValid() bool {
	return strings.TrimSpace(string(k)) != ""
}

// IsSynthetic reports whether only modules may produce events of this kind.
func (k Kind) IsSynthetic() bool {
	_, ok := synthetic[k]
	return ok
}

// NoActor marks an event without a source or target actor.
const NoActor = -1

// Metadata keys used by the built-in kinds.
const (
	MetaDuration  = "duration"
	MetaAbsorbed  = "absorbed"
	MetaOverheal  = "overheal"
	MetaCancelled = "cancelled"
	MetaHitType   = "hitType"
)

// Ability references the spell or ability an event belongs to.
type Ability struct {
	ID     int    `json:"guid"`
	Name   string `json:"name,omitempty"`
	School int    `json:"type,omitempty"`
}

// SchoolPhysical is the ability school of physical damage.
const SchoolPhysical = 1

// Event is an immutable combat record. Copy it freely; Meta must not be
// modified after the event has been built.
type Event struct {
	Index     int     `json:"index"`
	Timestamp int64   `json:"timestamp"`
	Kind      Kind    `json:"type"`
	SourceID  int     `json:"sourceID"`
	TargetID  int     `json:"targetID"`
	Ability   Ability `json:"ability"`
	Amount    int64   `json:"amount,omitempty"`
	Prepull   bool    `json:"prepull,omitempty"`
	Meta      Meta    `json:"meta,omitempty"`

	// Trigger is the event a synthetic event was fabricated from.
	Trigger *Event `json:"trigger,omitempty"`
}

// Synthetic reports whether the event was fabricated by a module.
func (e Event) Synthetic() bool {
	return e.Kind.IsSynthetic()
}

// Duration returns the duration metadata of derived events such as
// globalcooldown and endchannel.
func (e Event) Duration() int64 {
	return e.Meta.Int64(MetaDuration)
}

// Absorbed returns the absorbed amount of damage and heal events.
func (e Event) Absorbed() int64 {
	return e.Meta.Int64(MetaAbsorbed)
}

// Meta is the bag of kind-specific event fields.
type Meta map[string]any

// Int64 returns the numeric value stored under key, or 0.
func (m Meta) Int64(key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float64 returns the numeric value stored under key, or 0.
func (m Meta) Float64(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns the boolean value stored under key, or false.
func (m Meta) Bool(key string) bool {
	v, _ := m[key].(bool)
	return v
}

// String returns the string value stored under key, or "".
func (m Meta) String(key string) string {
	v, _ := m[key].(string)
	return v
}
