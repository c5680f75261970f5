// Package reference provides the read-only lookup tables the document
// templates consult: processes and their categories, KPIs and default
// procedure steps.
package reference

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type Category struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type Process struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	KPIs     []string `json:"kpis"`
}

// Classification is what a classification badge prints.
type Classification struct {
	Code          string
	ProcessLabel  string
	CategoryLabel string
}

// KPI is a process indicator with its target.
type KPI struct {
	Code           string  `json:"code"`
	Label          string  `json:"label"`
	Unit           string  `json:"unit"`
	Target         float64 `json:"target"`
	HigherIsBetter bool    `json:"higher_is_better"`
}

// Met reports whether value reaches the target.
func (k KPI) Met(value float64) bool {
	if k.HigherIsBetter {
		return value >= k.Target
	}
	return value <= k.Target
}

// Catalog is the lookup surface used by the composers.
type Catalog interface {
	Classification(code string) (Classification, bool)
	Process(code string) (Process, bool)
	Category(code string) (Category, bool)
	Categories() []Category
	KPI(code string) (KPI, bool)
	DefaultSteps(procedureCode string) []string
}

// StaticCatalog is an in-memory Catalog, usually loaded from JSON.
type StaticCatalog struct {
	CategoryList  []Category          `json:"categories"`
	Processes     []Process           `json:"processes"`
	KPIs          []KPI               `json:"kpis"`
	Steps         map[string][]string `json:"default_steps"`
	FallbackSteps []string            `json:"fallback_steps"`

	processes  map[string]Process
	categories map[string]Category
	kpis       map[string]KPI
}

// LoadCatalog reads a catalog from JSON.
func LoadCatalog(r io.Reader) (*StaticCatalog, error) {
	var c StaticCatalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.index()
	return &c, nil
}

// LoadFile reads a catalog file, falling back to Default when path is empty.
func LoadFile(path string) (*StaticCatalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (c *StaticCatalog) index() {
	c.processes = make(map[string]Process, len(c.Processes))
	for _, p := range c.Processes {
		c.processes[p.Code] = p
	}
	c.categories = make(map[string]Category, len(c.CategoryList))
	for _, cat := range c.CategoryList {
		c.categories[cat.Code] = cat
	}
	c.kpis = make(map[string]KPI, len(c.KPIs))
	for _, k := range c.KPIs {
		c.kpis[k.Code] = k
	}
}

// Classification resolves a process code to its badge labels. The code
// only resolves when both the process and its category are known.
func (c *StaticCatalog) Classification(code string) (Classification, bool) {
	p, ok := c.processes[code]
	if !ok {
		return Classification{}, false
	}
	cat, ok := c.categories[p.Category]
	if !ok {
		return Classification{}, false
	}
	return Classification{Code: p.Code, ProcessLabel: p.Name, CategoryLabel: cat.Label}, true
}

func (c *StaticCatalog) Process(code string) (Process, bool) {
	p, ok := c.processes[code]
	return p, ok
}

func (c *StaticCatalog) Category(code string) (Category, bool) {
	cat, ok := c.categories[code]
	return cat, ok
}

func (c *StaticCatalog) Categories() []Category {
	return c.CategoryList
}

func (c *StaticCatalog) KPI(code string) (KPI, bool) {
	k, ok := c.kpis[code]
	return k, ok
}

func (c *StaticCatalog) DefaultSteps(procedureCode string) []string {
	if steps, ok := c.Steps[procedureCode]; ok {
		return steps
	}
	return c.FallbackSteps
}
