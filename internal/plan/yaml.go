package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PlanFileName is the fixed plan file name inside a book folder.
const PlanFileName = "plan.yaml"

// ReadyFlagName marks a book folder as finished; execution skips it.
const ReadyFlagName = "_ready"

// ErrPlanNotFound is returned when a book folder has no plan file. Callers
// treat it as informational, not as a crash.
var ErrPlanNotFound = errors.New("plan file not found")

// Load reads and validates a plan file.
func Load(path string) (*BookPlan, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, path)
		}
		return nil, fmt.Errorf("read plan file %q: %w", path, err)
	}

	var p BookPlan
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, &ValidationError{Field: path, Message: err.Error()}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFromFolder loads <folder>/plan.yaml.
func LoadFromFolder(folder string) (*BookPlan, error) {
	return Load(filepath.Join(folder, PlanFileName))
}

// Save writes the plan to <folder>/plan.yaml, creating the folder when
// needed. Map keys keep struct declaration order so plan diffs stay readable.
func Save(p *BookPlan, folder string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create book folder %q: %w", folder, err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(p); err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}

	path := filepath.Join(folder, PlanFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write plan file %q: %w", path, err)
	}
	return path, nil
}

// IsReady reports whether the book folder carries the ready flag.
func IsReady(folder string) bool {
	_, err := os.Stat(filepath.Join(folder, ReadyFlagName))
	return err == nil
}

// ListPlanFolders returns the book folders under root that contain a plan
// file, in directory order. Ready flags are not consulted here; callers that
// only want unfinished books filter with IsReady.
func ListPlanFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read books root %q: %w", root, err)
	}

	var folders []string
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		folder := filepath.Join(root, ent.Name())
		if _, err := os.Stat(filepath.Join(folder, PlanFileName)); err != nil {
			continue
		}
		folders = append(folders, folder)
	}
	return folders, nil
}
