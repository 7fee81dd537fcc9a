package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/odatacriteria/internal/mapping"
)

// Schema is a loaded mapping specification.
type Schema struct {
	Types     []mapping.Type
	Classes   []mapping.MappedClass
	FileCount int
}

// Load loads every .cue file in dir as one CUE package.
func Load(dir string) (*Schema, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	s, err := FromValue(value)
	if err != nil {
		return nil, err
	}
	s.FileCount = len(files)
	return s, nil
}

// LoadSource compiles a single CUE source. filename is used in error
// positions only.
func LoadSource(filename, src string) (*Schema, error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	s, err := FromValue(value)
	if err != nil {
		return nil, err
	}
	s.FileCount = 1
	return s, nil
}

// FromValue extracts types and mapped classes from a built CUE value.
func FromValue(value cue.Value) (*Schema, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Schema{}

	typesVal := value.LookupPath(cue.ParsePath("types"))
	if typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := CompileType(iter.Value())
			if err != nil {
				return nil, err
			}
			s.Types = append(s.Types, *t)
		}
	}

	mappedVal := value.LookupPath(cue.ParsePath("mapped"))
	if mappedVal.Exists() {
		iter, err := mappedVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			mc, err := CompileMapped(iter.Value())
			if err != nil {
				return nil, err
			}
			s.Classes = append(s.Classes, *mc)
		}
	}

	if len(s.Types) == 0 {
		return nil, &CompileError{Field: "types", Message: "no types declared", Pos: value.Pos()}
	}
	return s, nil
}

// Build validates the schema and builds the mapping store.
func (s *Schema) Build() (*mapping.Store, error) {
	if errs := Validate(s); len(errs) > 0 {
		return nil, errs[0]
	}
	catalog, err := mapping.NewCatalog(s.Types...)
	if err != nil {
		return nil, err
	}
	return mapping.Build(catalog, s.Classes)
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
