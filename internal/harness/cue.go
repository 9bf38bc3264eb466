package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// scenarioSchema compiles the embedded schema and returns #Scenario.
func scenarioSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, err
	}
	return v.LookupPath(cue.ParsePath("#Scenario")), nil
}

// LoadScenarioCUE reads a scenario written in CUE. The file is unified with
// the #Scenario schema before it is decoded, so type and shape errors carry
// file positions.
func LoadScenarioCUE(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("failed to read scenario file: %v", err)}
	}
	return ParseScenarioCUE(data, path)
}

// ParseScenarioCUE parses CUE scenario source. filename is used in error
// positions.
func ParseScenarioCUE(data []byte, filename string) (*Scenario, error) {
	ctx := cuecontext.New()
	schema, err := scenarioSchema(ctx)
	if err != nil {
		return nil, fromCUE(ErrCodeSchema, err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fromCUE(ErrCodeParse, err)
	}
	u := schema.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeSchema, err)
	}

	var scenario Scenario
	if err := u.Decode(&scenario); err != nil {
		return nil, fromCUE(ErrCodeParse, err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: err.Error()}
	}
	return &scenario, nil
}

// Load reads a scenario file, choosing the format by extension.
func Load(path string) (*Scenario, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadScenarioCUE(path)
	case ".yaml", ".yml":
		return LoadScenario(path)
	}
	return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("unsupported scenario file %s (want .yaml, .yml or .cue)", path)}
}

// FindScenarioFiles returns the scenario files directly under dir, sorted.
func FindScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".cue", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// LoadDir loads every scenario file under dir. The first failure stops the
// load.
func LoadDir(dir string) ([]*Scenario, error) {
	files, err := FindScenarioFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("no scenario files found in %s", dir)}
	}
	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := Load(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ValidateScenario checks a scenario file against the #Scenario schema and
// returns every violation found. YAML files are encoded into CUE first.
func ValidateScenario(path string) []error {
	data, err := os.ReadFile(path)
	if err != nil {
		return []error{&LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("failed to read scenario file: %v", err)}}
	}

	ctx := cuecontext.New()
	schema, err := scenarioSchema(ctx)
	if err != nil {
		return []error{fromCUE(ErrCodeSchema, err)}
	}

	var v cue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(path))
	default:
		var doc any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
			return []error{&LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("failed to parse YAML: %v", err)}}
		}
		v = ctx.Encode(doc)
	}
	if err := v.Err(); err != nil {
		return []error{fromCUE(ErrCodeParse, err)}
	}

	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		var errs []error
		for _, e := range cueerrors.Errors(err) {
			errs = append(errs, fromCUE(ErrCodeSchema, e))
		}
		return errs
	}
	return nil
}

// fromCUE converts the first CUE error into a positioned LoadError.
func fromCUE(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	le := &LoadError{Code: code, Message: errs[0].Error()}
	// Disjunction failures often carry no position of their own; take the
	// first one any error in the list has.
	for _, e := range errs {
		if pos := cuePos(e); pos.IsValid() {
			le.Pos = pos
			break
		}
	}
	return le
}

func cuePos(e cueerrors.Error) token.Pos {
	for _, p := range cueerrors.Positions(e) {
		if p.IsValid() {
			return p
		}
	}
	return e.Position()
}
