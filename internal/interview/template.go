package interview

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultPassScore = 7

var ErrTemplateNotFound = errors.New("interview template not found")

//go:embed templates/*.yaml
var builtin embed.FS

// Template is the plan of an interview: a sequence of topic blocks plus the
// limits that govern follow-up questions and the pass mark.
type Template struct {
	Name        string  `yaml:"name" json:"name"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Config      Config  `yaml:"interview_config" json:"interview_config"`
	Blocks      []Block `yaml:"blocks" json:"blocks"`
}

type Config struct {
	QuestionsPerBlock int     `yaml:"questions_per_block" json:"questions_per_block"`
	MaxFollowUps      int     `yaml:"max_followup_questions" json:"max_followup_questions"`
	FollowUpThreshold float64 `yaml:"followup_threshold" json:"followup_threshold"`
	PassScore         float64 `yaml:"pass_score" json:"pass_score"`
}

type Block struct {
	ID            int      `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Title         string   `yaml:"title" json:"title"`
	ContextPrompt string   `yaml:"context_prompt" json:"context_prompt"`
	FocusAreas    []string `yaml:"focus_areas" json:"focus_areas,omitempty"`
	Questions     []string `yaml:"questions" json:"questions,omitempty"`
	Weight        float64  `yaml:"weight" json:"weight"`
}

// MaxQuestions is the upper bound of questions asked within one block.
func (c Config) MaxQuestions() int {
	return c.QuestionsPerBlock + c.MaxFollowUps
}

// ParseTemplate decodes a YAML template, applies defaults and validates it.
func ParseTemplate(data []byte) (*Template, error) {
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("parse template yaml: %w", err)
	}

	tpl.applyDefaults()

	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("template %q: %w", tpl.Name, err)
	}

	return &tpl, nil
}

func (t *Template) applyDefaults() {
	t.Name = strings.TrimSpace(t.Name)
	if t.Config.PassScore == 0 {
		t.Config.PassScore = defaultPassScore
	}
	for i := range t.Blocks {
		if t.Blocks[i].Weight == 0 {
			t.Blocks[i].Weight = 1
		}
	}
}

func (t *Template) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}

	if t.Config.QuestionsPerBlock <= 0 {
		return errors.New("questions_per_block must be greater than 0")
	}

	if t.Config.MaxFollowUps < 0 {
		return errors.New("max_followup_questions must not be negative")
	}

	if t.Config.FollowUpThreshold < 0 || t.Config.FollowUpThreshold > 10 {
		return errors.New("followup_threshold must be between 0 and 10")
	}

	if t.Config.PassScore <= 0 || t.Config.PassScore > 10 {
		return errors.New("pass_score must be within (0, 10]")
	}

	if len(t.Blocks) == 0 {
		return errors.New("at least one block is required")
	}

	for i, block := range t.Blocks {
		if block.ID != i+1 {
			return fmt.Errorf("block %d has wrong id: expected %d, got %d", i, i+1, block.ID)
		}
		if strings.TrimSpace(block.Name) == "" {
			return fmt.Errorf("block %d must have name", block.ID)
		}
		if strings.TrimSpace(block.Title) == "" {
			return fmt.Errorf("block %d must have title", block.ID)
		}
		if strings.TrimSpace(block.ContextPrompt) == "" {
			return fmt.Errorf("block %d must have context_prompt", block.ID)
		}
		if block.Weight < 0 {
			return fmt.Errorf("block %d weight must not be negative", block.ID)
		}
	}

	return nil
}

// Block returns the block with the given id or nil.
func (t *Template) Block(id int) *Block {
	if id < 1 || id > len(t.Blocks) {
		return nil
	}
	return &t.Blocks[id-1]
}

// Registry holds the interview templates available to every tenant.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry loads the embedded templates and then every *.yaml/*.yml file in
// dir, which override embedded templates of the same name. dir may be empty.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template)}

	if err := r.loadFS(builtin, "templates"); err != nil {
		return nil, fmt.Errorf("load builtin templates: %w", err)
	}

	if dir = strings.TrimSpace(dir); dir != "" {
		if err := r.loadFS(os.DirFS(dir), "."); err != nil {
			return nil, fmt.Errorf("load templates from %s: %w", dir, err)
		}
	}

	return r, nil
}

func (r *Registry) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, entry.Name())))
		if err != nil {
			return err
		}

		tpl, err := ParseTemplate(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}

		r.templates[tpl.Name] = tpl
	}

	return nil
}

func (r *Registry) Get(name string) (*Template, error) {
	tpl, ok := r.templates[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return tpl, nil
}

// List returns templates sorted by name.
func (r *Registry) List() []*Template {
	list := make([]*Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		list = append(list, tpl)
	}
	slices.SortFunc(list, func(a, b *Template) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for _, tpl := range r.List() {
		names = append(names, tpl.Name)
	}
	return names
}
