package protocol

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the declarative protocol definition: logical processing steps
// and the connections between them.
type Document struct {
	Operations  []Step       `yaml:"operations"`
	Connections []Connection `yaml:"connections"`
}

// Step declares one logical processing step of the protocol.
type Step struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// Connection links an output port of one process to an input port of
// another. IsData distinguishes data-flow links from physical transfers.
type Connection struct {
	Input  Endpoint `yaml:"input"`
	Output Endpoint `yaml:"output"`
	IsData bool     `yaml:"is_data"`
}

// Endpoint addresses one port of one process. The wire form is a two-element
// sequence [process_id, port].
type Endpoint struct {
	Process string
	Port    string
}

func (e *Endpoint) UnmarshalYAML(value *yaml.Node) error {
	var pair []string
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("endpoint must be a [process, port] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("endpoint must have exactly two elements, got %d", len(pair))
	}
	e.Process = pair[0]
	e.Port = pair[1]
	return nil
}

func (e Endpoint) MarshalYAML() (any, error) {
	return []string{e.Process, e.Port}, nil
}

// Manipulate declares one capability type with its task ports, used only for
// operator construction.
type Manipulate struct {
	Name   string `yaml:"name"`
	Input  []Port `yaml:"input"`
	Output []Port `yaml:"output"`
}

type Port struct {
	ID string `yaml:"id"`
}

// ManipulateDocument is the full capability definition: one entry per
// capability type.
type ManipulateDocument []Manipulate

// ByName returns the first entry with the given capability name.
func (d ManipulateDocument) ByName(name string) (Manipulate, bool) {
	for _, m := range d {
		if m.Name == name {
			return m, true
		}
	}
	return Manipulate{}, false
}
