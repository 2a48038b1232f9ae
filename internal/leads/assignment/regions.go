package assignment

import (
	"fmt"
	"os"
	"strings"

	"crm_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

// DefaultRegion collects agents whose branch and contacts whose city are not
// listed in any region.
const DefaultRegion = "default"

// Region groups branches and the cities they serve.
type Region struct {
	Name     string   `yaml:"name"`
	Branches []string `yaml:"branches"`
	Cities   []string `yaml:"cities"`
}

type regionsFile struct {
	Regions []Region `yaml:"regions"`
}

// Regions maps branches and cities to region bucket names.
type Regions struct {
	names    []string
	byBranch map[string]string
	byCity   map[string]string
}

// ParseRegions reads a regions document. Region names must be unique and a
// branch or city may belong to one region only.
func ParseRegions(data []byte) (Regions, error) {
	var doc regionsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Regions{}, fmt.Errorf("parse regions: %w", err)
	}
	return NewRegions(doc.Regions)
}

// LoadRegions reads the regions file at path. An empty path yields only the
// default bucket.
func LoadRegions(path string) (Regions, error) {
	if strings.TrimSpace(path) == "" {
		return NewRegions(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Regions{}, fmt.Errorf("read regions file: %w", err)
	}
	return ParseRegions(data)
}

func NewRegions(list []Region) (Regions, error) {
	r := Regions{byBranch: map[string]string{}, byCity: map[string]string{}}
	seen := map[string]bool{DefaultRegion: true}

	for _, region := range list {
		name := domain.CityKey(region.Name)
		if name == "" {
			return Regions{}, fmt.Errorf("region without name")
		}
		if seen[name] {
			return Regions{}, fmt.Errorf("duplicate region %q", name)
		}
		seen[name] = true
		r.names = append(r.names, name)

		for _, b := range region.Branches {
			key := domain.CityKey(b)
			if prev, ok := r.byBranch[key]; ok && prev != name {
				return Regions{}, fmt.Errorf("branch %q listed in %q and %q", key, prev, name)
			}
			r.byBranch[key] = name
		}
		for _, c := range region.Cities {
			key := domain.CityKey(c)
			if prev, ok := r.byCity[key]; ok && prev != name {
				return Regions{}, fmt.Errorf("city %q listed in %q and %q", key, prev, name)
			}
			r.byCity[key] = name
		}
	}
	return r, nil
}

// Names returns the declared region names in file order, without the default bucket.
func (r Regions) Names() []string {
	return append([]string(nil), r.names...)
}

func (r Regions) ForBranch(branch *string) string {
	if branch == nil {
		return DefaultRegion
	}
	if name, ok := r.byBranch[domain.CityKey(*branch)]; ok {
		return name
	}
	return DefaultRegion
}

func (r Regions) ForCity(city *string) string {
	if city == nil {
		return DefaultRegion
	}
	if name, ok := r.byCity[domain.CityKey(*city)]; ok {
		return name
	}
	return DefaultRegion
}
