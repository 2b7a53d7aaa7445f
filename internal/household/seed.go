package household

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/zombor/expense-intake/internal/extraction"
)

// Household is one entry of a roster seed file
type Household struct {
	ID      string              `yaml:"id"`
	Members []extraction.Member `yaml:"members"`
}

type seedFile struct {
	Households []Household `yaml:"households"`
}

// LoadSeedFile reads a YAML roster file:
//
//	households:
//	  - id: smith
//	    members:
//	      - id: john
//	        name: John
func LoadSeedFile(path string) ([]Household, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// ParseSeed decodes and validates roster YAML
func ParseSeed(r io.Reader) ([]Household, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return []Household{}, nil
		}
		return nil, fmt.Errorf("decoding roster: %w", err)
	}

	for i, h := range seed.Households {
		if strings.TrimSpace(h.ID) == "" {
			return nil, fmt.Errorf("household %d: id is required", i+1)
		}
		for j, m := range h.Members {
			if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.Name) == "" {
				return nil, fmt.Errorf("household %s member %d: id and name are required", h.ID, j+1)
			}
		}
	}
	if seed.Households == nil {
		seed.Households = []Household{}
	}
	return seed.Households, nil
}

// Seed writes every household's members into the roster. Existing members
// with the same ID are renamed, not duplicated.
func Seed(roster Roster, households []Household) error {
	for _, h := range households {
		for _, m := range h.Members {
			if err := roster.SaveMember(h.ID, m); err != nil {
				return fmt.Errorf("seeding %s/%s: %w", h.ID, m.ID, err)
			}
		}
	}
	return nil
}
