package protocol

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// Decode parses and validates a protocol document. Any defect is reported as
// a single aggregated error wrapping domain.ErrInvalidProtocol, so nothing
// reaches graph construction half-formed.
func Decode(raw []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidProtocol, err)
	}
	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// DecodeManipulate parses a capability definition document.
func DecodeManipulate(raw []byte) (ManipulateDocument, error) {
	var doc ManipulateDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidProtocol, err)
	}
	for i, m := range doc {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("%w: manipulate[%d] name is required", domain.ErrInvalidProtocol, i)
		}
	}
	return doc, nil
}

// Validate checks the structural invariants of a protocol document.
func Validate(doc Document) error {
	issues := &ValidationError{}

	if len(doc.Operations) == 0 {
		issues.Add("operations must contain at least one step")
	}

	seen := make(map[string]struct{}, len(doc.Operations)+2)
	seen[domain.SentinelInput] = struct{}{}
	seen[domain.SentinelOutput] = struct{}{}
	for i, step := range doc.Operations {
		id := strings.TrimSpace(step.ID)
		if id == "" {
			issues.Add(fmt.Sprintf("operation[%d] id is required", i))
			continue
		}
		if id == domain.SentinelInput || id == domain.SentinelOutput {
			issues.Add(fmt.Sprintf("operation id %q is reserved", id))
			continue
		}
		if _, exists := seen[id]; exists {
			issues.Add(fmt.Sprintf("duplicate operation id %q", id))
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(step.Type) == "" {
			issues.Add(fmt.Sprintf("operation %q type is required", id))
		}
	}

	for i, conn := range doc.Connections {
		if strings.TrimSpace(conn.Input.Process) == "" || strings.TrimSpace(conn.Output.Process) == "" {
			issues.Add(fmt.Sprintf("connection[%d] must name input and output processes", i))
			continue
		}
		if _, ok := seen[conn.Input.Process]; !ok {
			issues.Add(fmt.Sprintf("connection[%d] input process %q not declared", i, conn.Input.Process))
		}
		if _, ok := seen[conn.Output.Process]; !ok {
			issues.Add(fmt.Sprintf("connection[%d] output process %q not declared", i, conn.Output.Process))
		}
		if conn.Input.Process == conn.Output.Process {
			issues.Add(fmt.Sprintf("connection[%d] connects process %q to itself", i, conn.Input.Process))
		}
	}

	return issues.OrNil()
}

// Checksum returns the hex md5 digest of a raw document, recorded on the Run
// for provenance.
func Checksum(raw []byte) string {
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}
