package workflow

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes YAML content into a Workflow. Unknown keys are rejected
// so a misspelled field fails here instead of silently vanishing.
func Parse(data []byte) (*Workflow, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty workflow definition")
		}
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	return &wf, nil
}

// Load reads a workflow definition file and parses it.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}
