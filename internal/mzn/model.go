package mzn

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// defaultModelBase is the base name used for models compiled from inline
// content when no output base was supplied.
const defaultModelBase = "mznout"

var (
	// freeVarRe matches a variable declaration with no assignment, i.e. a
	// free variable eligible for the generated output statement.
	freeVarRe = regexp.MustCompile(`(?m)^\s*(?:array\s*\[[^\]]*\]\s*of\s+)?var\s+[^:;=]+:\s*([A-Za-z][A-Za-z0-9_]*)\s*;`)

	// outputStmtRe matches an existing output statement, which a decodable
	// rewrite replaces.
	outputStmtRe = regexp.MustCompile(`(?s)\boutput\s*\[.*?\]\s*;`)
)

// Model wraps a MiniZinc model for one pipeline run. It is created either
// from an on-disk file or from inline model text; rewrites (such as the
// decodable output statement) are applied to an in-memory copy and written
// out by Compile, never to the caller's file.
type Model struct {
	path       string
	content    string
	loaded     bool
	outputBase string
	serialize  bool
	modified   bool
}

// NewModel wraps an on-disk .mzn file.
func NewModel(path string) *Model {
	return &Model{path: path}
}

// NewModelString wraps inline model text.
func NewModelString(content string) *Model {
	return &Model{content: content, loaded: true, modified: true}
}

// SetOutputBase overrides the base name (including parent directories) used
// for the compiled model file. Parent directories must already exist.
func (m *Model) SetOutputBase(base string) {
	if base == "" {
		return
	}
	m.outputBase = base
	m.modified = true
}

// Serialize makes Compile derive a fresh, collision-free base name per call,
// isolating the generated artifacts of concurrent runs that share a working
// directory. It does not serialize the solving itself.
func (m *Model) Serialize() {
	m.serialize = true
	m.modified = true
}

// Text returns the current model text, loading it from disk on first use for
// file-backed models.
func (m *Model) Text() (string, error) {
	if err := m.load(); err != nil {
		return "", err
	}
	return m.content, nil
}

func (m *Model) load() error {
	if m.loaded {
		return nil
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("reading model %s: %w", m.path, err)
	}
	m.content = string(data)
	m.loaded = true
	return nil
}

// FreeVars returns the names of variables declared but not assigned in the
// model, in declaration order.
func (m *Model) FreeVars() ([]string, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	var names []string
	for _, match := range freeVarRe.FindAllStringSubmatch(m.content, -1) {
		names = append(names, match[1])
	}
	return names, nil
}

// DznOutputStmt installs an output statement that emits each variable as a
// dzn assignment, replacing any existing output statement. When vars is
// empty the model's free variables are used. Solutions produced under this
// statement decode through the dzn codec.
func (m *Model) DznOutputStmt(vars []string) error {
	if err := m.load(); err != nil {
		return err
	}
	if len(vars) == 0 {
		free, err := m.FreeVars()
		if err != nil {
			return err
		}
		vars = free
	}
	if len(vars) == 0 {
		return fmt.Errorf("no output variables: model declares no free variables")
	}

	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = fmt.Sprintf(`"%s = ", show(%s), ";\n"`, v, v)
	}
	stmt := "output [" + strings.Join(parts, ", ") + "];"

	if outputStmtRe.MatchString(m.content) {
		m.content = outputStmtRe.ReplaceAllString(m.content, stmt)
	} else {
		m.content = strings.TrimRight(m.content, "\n") + "\n" + stmt + "\n"
	}
	m.modified = true
	return nil
}

// Compile materializes the model for the flattening stage. Unmodified
// file-backed models are used in place and reported as not owned; any
// rewrite, output-base override or serialize request produces a fresh .mzn
// file owned by the run (and therefore eligible for cleanup).
func (m *Model) Compile() (path string, owned bool, err error) {
	if !m.modified && m.path != "" {
		return m.path, false, nil
	}
	if err := m.load(); err != nil {
		return "", false, err
	}

	base := m.outputBase
	if base == "" {
		if m.path != "" {
			base = strings.TrimSuffix(m.path, filepath.Ext(m.path))
		} else {
			base = defaultModelBase
		}
	}
	if m.serialize {
		base = fmt.Sprintf("%s_%s", base, uuid.NewString())
	}

	out := base + ".mzn"
	if out == m.path {
		// never clobber the caller's model file
		out = base + "_compiled.mzn"
	}
	if err := os.WriteFile(out, []byte(m.content), 0o644); err != nil {
		return "", false, fmt.Errorf("writing model %s: %w", out, err)
	}
	return out, true, nil
}
