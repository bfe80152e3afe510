package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	CategoryVIP     = "VIP"
	CategoryGeneral = "General"

	traitSeat     = "Seat"
	traitCategory = "Category"
)

// Attribute is one trait of a descriptor.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// File is a file attached to a descriptor.
type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Properties holds the descriptor's attached files.
type Properties struct {
	Files []File `json:"files"`
}

// Descriptor is the JSON document a ticket's metadata reference points at.
type Descriptor struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
	Properties  Properties  `json:"properties"`
}

// Template is what every descriptor of one event shares.
type Template struct {
	EventName    string `yaml:"event_name"`
	Symbol       string `yaml:"symbol"`
	Description  string `yaml:"description"`
	ImageBaseURI string `yaml:"image_base_uri"`
	// VIPCount is how many of the first seats are VIP.
	VIPCount int `yaml:"vip_count"`
}

// Seats returns n seat labels prefix1..prefixN, or nil when n < 1.
func Seats(prefix string, n int) []string {
	if n < 1 {
		return nil
	}
	seats := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		seats = append(seats, prefix+strconv.Itoa(i))
	}
	return seats
}

// Category returns the category of the seat at zero-based position i.
func (t Template) Category(i int) string {
	if i < t.VIPCount {
		return CategoryVIP
	}
	return CategoryGeneral
}

// Build function
func (t Template) Build(seat, category string) Descriptor {
	image := t.ImageBaseURI + seat + ".png"
	return Descriptor{
		Name:        fmt.Sprintf("%s - Seat %s", t.EventName, seat),
		Symbol:      t.Symbol,
		Description: t.Description,
		Image:       image,
		Attributes: []Attribute{
			{TraitType: traitSeat, Value: seat},
			{TraitType: traitCategory, Value: category},
		},
		Properties: Properties{Files: []File{{URI: image, Type: "image/png"}}},
	}
}

// Seat returns the seat trait, if any.
func (d Descriptor) Seat() string { return d.trait(traitSeat) }

// Category returns the category trait, if any.
func (d Descriptor) Category() string { return d.trait(traitCategory) }

func (d Descriptor) trait(name string) string {
	for _, a := range d.Attributes {
		if a.TraitType == name {
			return a.Value
		}
	}
	return ""
}

// Generate writes one <seat>.json descriptor per seat into dir and returns
// the paths written, in seat order.
func Generate(dir string, t Template, seats []string, log logrus.FieldLogger) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(seats))
	for i, seat := range seats {
		d := t.Build(seat, t.Category(i))
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, seat+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		log.WithField("seat", seat).Debugf("Metadata generated: %s", path)
		paths = append(paths, path)
	}
	log.Infof("Metadata generation complete: %d descriptors", len(paths))
	return paths, nil
}

// ReadDescriptor loads a descriptor file.
func ReadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("decode %s: %w", path, err)
	}
	return d, nil
}
