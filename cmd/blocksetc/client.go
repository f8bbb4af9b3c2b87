package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fileClient buffers the compiler's output streams in memory and writes
// them to disk only after a successful compilation, so a compile error
// never leaves partial files behind.
type fileClient struct {
	actions []byte

	filtersWithoutConditions []byte
	filtersWithConditions    []byte
	conditionedFilters       []byte

	manifest outputManifest
	final    bool
}

// outputManifest records section sizes and the blob boundaries within each
// bytecode section; each blob is one machine and is independently
// addressable.
type outputManifest struct {
	ActionsLength                 int   `json:"actions_length"`
	FiltersWithoutConditionsBlobs []int `json:"filters_without_conditions_blobs"`
	FiltersWithConditionsBlobs    []int `json:"filters_with_conditions_blobs"`
	ConditionedFiltersBlobs       []int `json:"conditioned_filters_blobs"`
}

func (c *fileClient) WriteActions(actions []byte) {
	c.actions = append(c.actions, actions...)
	c.manifest.ActionsLength = len(c.actions)
}

func (c *fileClient) WriteFiltersWithoutConditionsBytecode(bytecode []byte) {
	c.filtersWithoutConditions = append(c.filtersWithoutConditions, bytecode...)
	c.manifest.FiltersWithoutConditionsBlobs = append(c.manifest.FiltersWithoutConditionsBlobs, len(bytecode))
}

func (c *fileClient) WriteFiltersWithConditionsBytecode(bytecode []byte) {
	c.filtersWithConditions = append(c.filtersWithConditions, bytecode...)
	c.manifest.FiltersWithConditionsBlobs = append(c.manifest.FiltersWithConditionsBlobs, len(bytecode))
}

func (c *fileClient) WriteConditionedFiltersBytecode(bytecode []byte) {
	c.conditionedFilters = append(c.conditionedFilters, bytecode...)
	c.manifest.ConditionedFiltersBlobs = append(c.manifest.ConditionedFiltersBlobs, len(bytecode))
}

func (c *fileClient) Finalize() {
	c.final = true
}

// Flush writes all buffered sections into the output directory. It must
// only be called after the compiler finalized the output.
func (c *fileClient) Flush(outputDir string) error {
	if !c.final {
		return fmt.Errorf("compilation did not finalize; refusing to write output")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	manifest, err := json.MarshalIndent(&c.manifest, "", "  ")
	if err != nil {
		return err
	}
	sections := map[string][]byte{
		"actions.bin":                    c.actions,
		"filters-without-conditions.bin": c.filtersWithoutConditions,
		"filters-with-conditions.bin":    c.filtersWithConditions,
		"conditioned-filters.bin":        c.conditionedFilters,
		"manifest.json":                  manifest,
	}
	for name, data := range sections {
		if err := os.WriteFile(filepath.Join(outputDir, name), data, 0o644); err != nil {
			return fmt.Errorf("cannot write %s: %w", name, err)
		}
	}
	return nil
}
