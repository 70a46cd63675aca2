// Package prompts hosts the file-backed prompt store: JSON template files
// under a base directory, each rendered with simple {{argument}}
// substitution. Adapted from the teacher's pkg/prompts/registry.go
// (PromptRegistry, ensureSamplePrompts) into per-prompt mcp.Prompt values.
package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/registry"
	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// storedPrompt is the on-disk JSON shape, one file per prompt.
type storedPrompt struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Template    string                  `json:"template"`
	Arguments   []protocol.PromptArgument `json:"arguments"`
}

// FilePrompt is one prompt backed by a JSON template file, rendered with
// {{name}} substitution against the supplied arguments.
type FilePrompt struct {
	def      protocol.Prompt
	template string
}

func (p *FilePrompt) Definition() protocol.Prompt { return p.def }

func (p *FilePrompt) Get(ctx context.Context, args map[string]string) (*protocol.PromptResult, error) {
	text := p.template
	for k, v := range args {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return &protocol.PromptResult{
		Description: p.def.Description,
		Messages: []protocol.PromptMessage{
			{Role: "user", Content: protocol.TextContent(text)},
		},
	}, nil
}

// LoadDir reads every *.json file under dir as a stored prompt, creating dir
// and a sample catalogue (adapted from the teacher's ensureSamplePrompts) if
// it doesn't exist yet. Returned prompts are not yet registered; the caller
// registers each with a registry.PromptRegistry.
func LoadDir(dir string) ([]mcp.Prompt, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("prompts: creating %s: %w", dir, err)
		}
		if err := writeSamplePrompts(dir); err != nil {
			return nil, err
		}
	}

	var out []mcp.Prompt
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("prompts: failed to read", path, err)
			return nil
		}
		var sp storedPrompt
		if err := json.Unmarshal(data, &sp); err != nil {
			logger.Warn("prompts: failed to parse", path, err)
			return nil
		}
		out = append(out, &FilePrompt{
			def: protocol.Prompt{
				Name:        sp.Name,
				Description: sp.Description,
				Arguments:   sp.Arguments,
			},
			template: sp.Template,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prompts: listing %s: %w", dir, err)
	}
	return out, nil
}

// RegisterAll loads dir and registers every prompt found into reg.
func RegisterAll(reg *registry.PromptRegistry, dir string) error {
	loaded, err := LoadDir(dir)
	if err != nil {
		return err
	}
	for _, p := range loaded {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func writeSamplePrompts(dir string) error {
	samples := []storedPrompt{
		{
			Name:        "code-review",
			Description: "Review code for best practices, bugs, and improvements",
			Template:    "Please review the following {{language}} code for:\n- Best practices\n- Potential bugs\n- Performance improvements\n- Security issues\n\nCode:\n```{{language}}\n{{code}}\n```",
			Arguments: []protocol.PromptArgument{
				{Name: "language", Description: "Programming language of the code", Required: true},
				{Name: "code", Description: "The code to review", Required: true},
			},
		},
		{
			Name:        "explain-concept",
			Description: "Explain a technical concept in simple terms",
			Template:    "Please explain {{concept}} in simple terms that a {{audience}} would understand.",
			Arguments: []protocol.PromptArgument{
				{Name: "concept", Description: "The technical concept to explain", Required: true},
				{Name: "audience", Description: "Target audience", Required: false},
			},
		},
	}
	for _, s := range samples {
		path := filepath.Join(dir, s.Name+".json")
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("prompts: writing sample %s: %w", path, err)
		}
	}
	return nil
}
