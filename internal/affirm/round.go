// ABOUTME: Affirmation round model built from triplets and reinforcement lines
// ABOUTME: The scheduler only needs the ordered utterances; structure is script data
package affirm

import "fmt"

// Role describes an utterance's place in a round
type Role string

const (
	Anchor        Role = "anchor"
	Bridge        Role = "bridge"
	Integration   Role = "integration"
	Reinforcement Role = "reinforcement"
	Narration     Role = "narration"
)

// Utterance is one spoken unit, cued once per breath cycle
type Utterance struct {
	Voice string `yaml:"voice"`
	Text  string `yaml:"text"`
	Role  Role   `yaml:"role"`
}

// Round is an ordered, bounded sequence of utterances
type Round struct {
	Name       string
	Utterances []Utterance
}

// Len returns the number of utterances
func (r Round) Len() int {
	return len(r.Utterances)
}

// Triplet is one anchor, bridge, integration group
type Triplet struct {
	Anchor      Utterance
	Bridge      Utterance
	Integration Utterance
}

// BuildRound flattens triplets into a round, inserting the next reinforcement
// line after each triplet index listed in after (0-based). Reinforcement lines
// are used in order and wrap when after lists more positions than lines.
func BuildRound(name string, triplets []Triplet, reinforcement []Utterance, after []int) (Round, error) {
	insertAfter := make(map[int]bool, len(after))
	for _, idx := range after {
		if idx < 0 || idx >= len(triplets) {
			return Round{}, fmt.Errorf("round %q: reinforcement position %d outside %d triplets", name, idx, len(triplets))
		}
		insertAfter[idx] = true
	}
	if len(insertAfter) > 0 && len(reinforcement) == 0 {
		return Round{}, fmt.Errorf("round %q: reinforcement positions given without reinforcement lines", name)
	}

	round := Round{Name: name}
	next := 0
	for i, t := range triplets {
		round.Utterances = append(round.Utterances,
			withRole(t.Anchor, Anchor),
			withRole(t.Bridge, Bridge),
			withRole(t.Integration, Integration),
		)
		if insertAfter[i] {
			round.Utterances = append(round.Utterances, withRole(reinforcement[next%len(reinforcement)], Reinforcement))
			next++
		}
	}
	return round, nil
}

func withRole(u Utterance, role Role) Utterance {
	u.Role = role
	return u
}
