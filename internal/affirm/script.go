// ABOUTME: YAML affirmation script loader
// ABOUTME: Scripts declare voices per role, triplets and reinforcement placement
package affirm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a set of rounds in one language
type Script struct {
	Language string        `yaml:"language"`
	Rounds   []ScriptRound `yaml:"rounds"`
}

// ScriptRound is the on-disk form of a round
type ScriptRound struct {
	Name           string      `yaml:"name"`
	Voices         RoleVoices  `yaml:"voices"`
	Triplets       [][3]string `yaml:"triplets"`
	Reinforcement  []string    `yaml:"reinforcement"`
	ReinforceAfter []int       `yaml:"reinforce_after"`
}

// RoleVoices assigns a voice to each role
type RoleVoices struct {
	Anchor        string `yaml:"anchor"`
	Bridge        string `yaml:"bridge"`
	Integration   string `yaml:"integration"`
	Reinforcement string `yaml:"reinforcement"`
}

// LoadScript reads and builds a script file
func LoadScript(path string) ([]Round, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript builds rounds from YAML
func ParseScript(data []byte) ([]Round, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(script.Rounds) == 0 {
		return nil, fmt.Errorf("script has no rounds")
	}

	rounds := make([]Round, 0, len(script.Rounds))
	for i, sr := range script.Rounds {
		name := sr.Name
		if name == "" {
			name = fmt.Sprintf("round-%d", i+1)
		}
		if len(sr.Triplets) == 0 {
			return nil, fmt.Errorf("round %q has no triplets", name)
		}

		triplets := make([]Triplet, len(sr.Triplets))
		for j, t := range sr.Triplets {
			triplets[j] = Triplet{
				Anchor:      Utterance{Voice: sr.Voices.Anchor, Text: t[0]},
				Bridge:      Utterance{Voice: sr.Voices.Bridge, Text: t[1]},
				Integration: Utterance{Voice: sr.Voices.Integration, Text: t[2]},
			}
		}

		var reinforcement []Utterance
		for _, text := range sr.Reinforcement {
			reinforcement = append(reinforcement, Utterance{Voice: sr.Voices.Reinforcement, Text: text})
		}

		round, err := BuildRound(name, triplets, reinforcement, sr.ReinforceAfter)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}
