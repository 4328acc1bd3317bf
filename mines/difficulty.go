package mines

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var Presets = map[Difficulty]GameParams{
	Easy:   {Rows: 9, Cols: 9, Bombs: 10},
	Medium: {Rows: 13, Cols: 15, Bombs: 40},
	Hard:   {Rows: 16, Cols: 30, Bombs: 99},
}

// ParseDifficulty accepts a preset name or its first letter, case-insensitively.
func ParseDifficulty(text string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "e", "easy":
		return Easy, nil
	case "m", "medium":
		return Medium, nil
	case "h", "hard":
		return Hard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", text)
	}
}

func (d Difficulty) Params() (GameParams, error) {
	params, ok := Presets[d]
	if !ok {
		return GameParams{}, fmt.Errorf("unknown difficulty %q", string(d))
	}
	return params, nil
}

// DifficultyOf returns the preset matching params, or "custom".
func DifficultyOf(params GameParams) Difficulty {
	for difficulty, preset := range Presets {
		if preset == params {
			return difficulty
		}
	}
	return "custom"
}
