// Package samplelog generates seeded, realistic combat logs and drives a
// running fightlog server with them.
package samplelog

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/model"
)

// Actor ids used by generated logs.
const (
	PlayerID = 1
	HealerID = 3
	BossID   = 100
)

// Ability ids used by generated logs. They match profile.DefaultConfig.
const (
	ShadowBolt  = 686
	DrainSoul   = 198590
	Agony       = 980
	Corruption  = 146739
	SiphonLife  = 63106
	Vulnerable  = 187131
	Stoneform   = 65116
	Melee       = 1
	Cleave      = 15284
	SpellLock   = 19647
	FallingHurt = 3
)

const (
	fightStart     = 1_000_000
	channelLength  = 3_000
	stoneformTime  = 8_000
	dotRefresh     = 18_000
	meleeInterval  = 2_000
	cleaveInterval = 11_000
	idleChance     = 0.12
)

// Generator builds logs from Options.
type Generator struct {
	opts Options
	rng  *rand.Rand
}

// NewGenerator creates a generator.
func NewGenerator(opts ...Option) *Generator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Generator{opts: o, rng: rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))} //nolint:gosec // reproducible sample data
}

// Generate returns one analysis request. The same seed always yields the
// same request, id included.
func (g *Generator) Generate() model.Job {
	o := g.opts
	end := int64(fightStart) + o.Duration

	spec := encounter.Spec{
		FightID:    g.rng.IntN(9_000) + 1,
		Boss:       o.Boss,
		Start:      fightStart,
		End:        end,
		SelectedID: PlayerID,
		Combatants: []encounter.CombatantSpec{
			{ID: PlayerID, Name: "Hagrim", Race: o.Race, Class: "Warlock", Spec: "Affliction", Talents: o.Talents, Haste: o.Haste},
			{ID: HealerID, Name: "Velenne", Race: encounter.RaceHuman, Class: "Priest", Spec: "Holy"},
		},
	}

	var recs []record
	recs = append(recs, g.prepull()...)
	recs = append(recs, g.rotation(end)...)
	recs = append(recs, g.bossDamage(end)...)
	recs = append(recs, g.stoneform(end)...)
	recs = append(recs, g.dots(end)...)
	slices.SortStableFunc(recs, func(a, b record) int { return cmp.Compare(a.Timestamp, b.Timestamp) })

	events := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		raw, err := json.Marshal(r)
		if err != nil {
			panic(fmt.Sprintf("samplelog: marshal record: %v", err))
		}
		events = append(events, raw)
	}

	return model.Job{
		ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte("fightlog-sample-"+strconv.FormatUint(o.Seed, 10))).String(),
		Profile:   o.Profile,
		Encounter: spec,
		Events:    events,
	}
}

// record is the raw wire shape read by event normalization.
type record struct {
	Timestamp int64      `json:"timestamp"`
	Type      event.Kind `json:"type"`
	SourceID  int        `json:"sourceID"`
	TargetID  int        `json:"targetID"`
	Ability   ability    `json:"ability"`
	Amount    int64      `json:"amount,omitempty"`
	Absorbed  int64      `json:"absorbed,omitempty"`
	HitType   int        `json:"hitType,omitempty"`
	Prepull   bool       `json:"prepull,omitempty"`
}

type ability struct {
	GUID int    `json:"guid"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

var abilities = map[int]ability{
	ShadowBolt:  {ShadowBolt, "Shadow Bolt", 32},
	DrainSoul:   {DrainSoul, "Drain Soul", 32},
	Agony:       {Agony, "Agony", 32},
	Corruption:  {Corruption, "Corruption", 32},
	SiphonLife:  {SiphonLife, "Siphon Life", 32},
	Vulnerable:  {Vulnerable, "Vulnerable", 1},
	Stoneform:   {Stoneform, "Stoneform", 1},
	Melee:       {Melee, "Melee", event.SchoolPhysical},
	Cleave:      {Cleave, "Cleave", event.SchoolPhysical},
	SpellLock:   {SpellLock, "Spell Lock", 32},
	FallingHurt: {FallingHurt, "Falling", event.SchoolPhysical},
}

func rec(ts int64, kind event.Kind, source, target, id int) record {
	return record{Timestamp: ts, Type: kind, SourceID: source, TargetID: target, Ability: abilities[id]}
}

func (g *Generator) prepull() []record {
	r := rec(fightStart-1_200, event.KindCast, PlayerID, BossID, Agony)
	r.Prepull = true
	return []record{r}
}

// rotation casts on cooldown with occasional idle gaps and a Drain Soul
// channel every so often.
func (g *Generator) rotation(end int64) []record {
	gcd := int64(float64(1500) / (1 + g.opts.Haste))
	var out []record
	casts := 0
	for ts := int64(fightStart); ts < end; {
		if g.rng.Float64() < idleChance {
			ts += 500 + g.rng.Int64N(2_500)
			continue
		}
		casts++
		switch {
		case casts%12 == 0 && ts+channelLength < end:
			out = append(out, rec(ts, event.KindCast, PlayerID, BossID, DrainSoul))
			for tick := ts + 1_000; tick <= ts+channelLength; tick += 1_000 {
				out = append(out, g.hit(tick, PlayerID, BossID, DrainSoul, 900, 1_400))
			}
			out = append(out, rec(ts+channelLength, event.KindRemoveDebuff, PlayerID, BossID, DrainSoul))
			ts += channelLength
		case casts%9 == 0:
			// off-GCD interrupt followed by a hard cast
			out = append(out, rec(ts, event.KindCast, PlayerID, BossID, SpellLock))
			out = append(out, rec(ts+50, event.KindBeginCast, PlayerID, BossID, ShadowBolt))
			out = append(out, rec(ts+50+gcd, event.KindCast, PlayerID, BossID, ShadowBolt))
			out = append(out, g.hit(ts+50+gcd+400, PlayerID, BossID, ShadowBolt, 2_000, 3_500))
			ts += 50 + gcd
		default:
			out = append(out, rec(ts, event.KindCast, PlayerID, BossID, ShadowBolt))
			out = append(out, g.hit(ts+400, PlayerID, BossID, ShadowBolt, 2_000, 3_500))
			ts += gcd + g.rng.Int64N(120)
		}
	}
	return out
}

func (g *Generator) bossDamage(end int64) []record {
	var out []record
	for ts := int64(fightStart + 700); ts < end; ts += meleeInterval {
		r := g.hit(ts, BossID, PlayerID, Melee, 4_000, 6_000)
		if g.rng.IntN(10) == 0 {
			r.Absorbed = r.Amount / 4
		}
		out = append(out, r)
	}
	for ts := int64(fightStart + 5_000); ts < end; ts += cleaveInterval {
		out = append(out, g.hit(ts, BossID, PlayerID, Cleave, 9_000, 14_000))
	}
	if end-fightStart > 20_000 {
		out = append(out, g.hit(fightStart+20_000, event.NoActor, PlayerID, FallingHurt, 300, 900))
	}
	return out
}

func (g *Generator) stoneform(end int64) []record {
	var out []record
	for ts := int64(fightStart + 30_000); ts+stoneformTime < end; ts += 120_000 {
		out = append(out,
			rec(ts, event.KindCast, PlayerID, PlayerID, Stoneform),
			rec(ts, event.KindApplyBuff, PlayerID, PlayerID, Stoneform),
			rec(ts+stoneformTime, event.KindRemoveBuff, PlayerID, PlayerID, Stoneform),
		)
	}
	return out
}

// dots keeps the affliction DoTs rolling with short gaps, plus windows of
// Vulnerable on the boss.
func (g *Generator) dots(end int64) []record {
	var out []record
	for _, id := range []int{Agony, Corruption, SiphonLife} {
		ts := int64(fightStart) + g.rng.Int64N(3_000)
		for ts < end {
			out = append(out, rec(ts, event.KindApplyDebuff, PlayerID, BossID, id))
			off := min(ts+dotRefresh, end-1)
			out = append(out, rec(off, event.KindRemoveDebuff, PlayerID, BossID, id))
			for tick := ts + 2_000; tick < off; tick += 2_000 {
				out = append(out, g.hit(tick, PlayerID, BossID, id, 300, 700))
			}
			ts = off + 500 + g.rng.Int64N(2_000)
		}
	}
	for ts := int64(fightStart + 4_000); ts+6_000 < end; ts += 15_000 + g.rng.Int64N(5_000) {
		out = append(out,
			rec(ts, event.KindApplyDebuff, PlayerID, BossID, Vulnerable),
			rec(ts+6_000, event.KindRemoveDebuff, PlayerID, BossID, Vulnerable),
		)
	}
	return out
}

func (g *Generator) hit(ts int64, source, target, id int, low, high int64) record {
	r := rec(ts, event.KindDamage, source, target, id)
	r.Amount = low + g.rng.Int64N(high-low)
	r.HitType = 1
	if g.rng.IntN(5) == 0 {
		r.HitType = 2
		r.Amount *= 2
	}
	return r
}
