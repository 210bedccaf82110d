// Package pack orchestrates sprite compilations described by instruction files.
package pack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Instruction describes a single sprite compilation. CSS and Img are
// required, relative paths are resolved against the instruction file
// location. Name defaults to the stylesheet base name and is used for
// selection on the command line and for output name templating.
type Instruction struct {
	Name   string `json:"name,omitempty"`
	CSS    string `json:"css"`
	Img    string `json:"img"`
	Sprite string `json:"sprite,omitempty"`
}

// LoadInstructions reads instruction file - a JSON array of instructions,
// resolves relative paths and fills in default names. Duplicate names are
// rejected, selection by name would be ambiguous otherwise.
func LoadInstructions(path string) ([]Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read instruction file: %w", err)
	}

	var instructions []Instruction
	if err := json.Unmarshal(data, &instructions); err != nil {
		return nil, fmt.Errorf("unable to parse instruction file (%s): %w", path, err)
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("instruction file has no instructions (%s)", path)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(instructions))
	for i := range instructions {
		in := &instructions[i]
		if len(in.CSS) == 0 {
			return nil, fmt.Errorf("instruction %d has no stylesheet", i)
		}
		if len(in.Img) == 0 {
			return nil, fmt.Errorf("instruction %d (%s) has no image source", i, in.CSS)
		}

		in.CSS = absAgainst(base, in.CSS)
		in.Img = absAgainst(base, in.Img)
		if len(in.Sprite) != 0 {
			in.Sprite = absAgainst(base, in.Sprite)
		}

		if len(in.Name) == 0 {
			in.Name = strings.TrimSuffix(filepath.Base(in.CSS), filepath.Ext(in.CSS))
		}
		if _, exists := seen[in.Name]; exists {
			return nil, fmt.Errorf("duplicate instruction name %q", in.Name)
		}
		seen[in.Name] = struct{}{}
	}
	return instructions, nil
}

// SelectInstructions filters instructions by name keeping file order. Unknown
// names are an error - a typo silently compiling nothing is worse.
func SelectInstructions(instructions []Instruction, names []string) ([]Instruction, error) {
	if len(names) == 0 {
		return instructions, nil
	}

	for _, name := range names {
		if !slices.ContainsFunc(instructions, func(in Instruction) bool { return in.Name == name }) {
			return nil, fmt.Errorf("no instruction named %q", name)
		}
	}

	selected := make([]Instruction, 0, len(names))
	for _, in := range instructions {
		if slices.Contains(names, in.Name) {
			selected = append(selected, in)
		}
	}
	return selected, nil
}

func absAgainst(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
