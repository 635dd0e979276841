package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var catalogSource []byte

// ErrUnknownVersion is returned when a version outside the catalog is requested.
var ErrUnknownVersion = errors.New("unknown schema version")

// Catalog is the read-only mapping from Version to Definition.
// It is total over [1, Latest()].
type Catalog struct {
	defs   map[Version]Definition
	latest Version
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(catalogSource, "schema.cue")
})

// Default returns the catalog compiled from the embedded schema.cue.
// The catalog is compiled once per process.
func Default() (*Catalog, error) {
	return loadDefault()
}

// LoadCatalog compiles CUE source into a Catalog.
//
// The source must declare a `versions` list whose entries carry a `version`
// number and a `tables` list. Versions must be contiguous starting at 1 and
// every definition must pass Check.
func LoadCatalog(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	versionsVal := value.LookupPath(cue.ParsePath("versions"))
	if !versionsVal.Exists() {
		return nil, &CompileError{Field: "versions", Message: "versions list is required", Pos: value.Pos()}
	}

	iter, err := versionsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	c := &Catalog{defs: make(map[Version]Definition)}
	for iter.Next() {
		def, err := compileDefinition(iter.Value())
		if err != nil {
			return nil, err
		}
		if _, dup := c.defs[def.Version]; dup {
			return nil, &CompileError{
				Field:   "versions",
				Message: fmt.Sprintf("version %d declared twice", def.Version),
				Pos:     iter.Value().Pos(),
			}
		}
		if errs := Check(def); len(errs) > 0 {
			return nil, &CheckError{Version: def.Version, Errors: errs}
		}
		c.defs[def.Version] = def
		if def.Version > c.latest {
			c.latest = def.Version
		}
	}

	if c.latest == 0 {
		return nil, &CompileError{Field: "versions", Message: "at least one version is required", Pos: versionsVal.Pos()}
	}
	for v := Version(1); v <= c.latest; v++ {
		if _, ok := c.defs[v]; !ok {
			return nil, &CompileError{
				Field:   "versions",
				Message: fmt.Sprintf("version %d is missing; versions must be contiguous from 1 to %d", v, c.latest),
				Pos:     versionsVal.Pos(),
			}
		}
	}

	return c, nil
}

// At returns a copy of the definition for version v.
func (c *Catalog) At(v Version) (Definition, error) {
	def, ok := c.defs[v]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %d (catalog covers 1..%d)", ErrUnknownVersion, v, c.latest)
	}
	return def.Clone(), nil
}

// Latest returns the highest version in the catalog.
func (c *Catalog) Latest() Version {
	return c.latest
}

// Versions returns every version in ascending order.
func (c *Catalog) Versions() []Version {
	out := make([]Version, 0, len(c.defs))
	for v := range c.defs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func compileDefinition(v cue.Value) (Definition, error) {
	var def Definition

	versionVal := v.LookupPath(cue.ParsePath("version"))
	if !versionVal.Exists() {
		return def, &CompileError{Field: "version", Message: "version is required", Pos: v.Pos()}
	}
	n, err := versionVal.Int64()
	if err != nil {
		return def, formatCUEError(err)
	}
	if n < 1 {
		return def, &CompileError{Field: "version", Message: fmt.Sprintf("version must be positive, got %d", n), Pos: versionVal.Pos()}
	}
	def.Version = Version(n)

	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	iter, err := tablesVal.List()
	if err != nil {
		return def, formatCUEError(err)
	}
	for iter.Next() {
		table, err := compileTable(iter.Value())
		if err != nil {
			return def, err
		}
		def.Tables = append(def.Tables, table)
	}

	return def, nil
}

func compileTable(v cue.Value) (Table, error) {
	var t Table

	name, err := lookupString(v, "name")
	if err != nil {
		return t, err
	}
	t.Name = name

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return t, &CompileError{Field: "columns", Message: "columns is required", Pos: v.Pos()}
	}
	colIter, err := resolved(columnsVal).List()
	if err != nil {
		return t, formatCUEError(err)
	}
	for colIter.Next() {
		col, err := compileColumn(colIter.Value())
		if err != nil {
			return t, err
		}
		t.Columns = append(t.Columns, col)
	}

	t.PrimaryKey, err = lookupStrings(v, "primary_key")
	if err != nil {
		return t, err
	}

	indicesVal := v.LookupPath(cue.ParsePath("indices"))
	if !indicesVal.Exists() {
		return t, nil
	}
	idxIter, err := resolved(indicesVal).List()
	if err != nil {
		return t, formatCUEError(err)
	}
	for idxIter.Next() {
		iv := idxIter.Value()
		idx := Index{}
		if idx.Name, err = lookupString(iv, "name"); err != nil {
			return t, err
		}
		if idx.Columns, err = lookupStrings(iv, "columns"); err != nil {
			return t, err
		}
		if idx.Unique, err = lookupBool(iv, "unique"); err != nil {
			return t, err
		}
		t.Indices = append(t.Indices, idx)
	}

	return t, nil
}

func compileColumn(v cue.Value) (Column, error) {
	var c Column
	var err error

	if c.Name, err = lookupString(v, "name"); err != nil {
		return c, err
	}
	typ, err := lookupString(v, "type")
	if err != nil {
		return c, err
	}
	c.Type = ColumnType(typ)
	if !ValidColumnTypes[c.Type] {
		return c, &CompileError{Field: "type", Message: fmt.Sprintf("invalid column type %q", typ), Pos: v.Pos()}
	}
	if c.NotNull, err = lookupBool(v, "not_null"); err != nil {
		return c, err
	}

	defVal := v.LookupPath(cue.ParsePath("default"))
	if defVal.Exists() {
		s, err := resolved(defVal).String()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.Default = &s
	}

	return c, nil
}

// resolved selects the default of a disjunction, if any.
func resolved(v cue.Value) cue.Value {
	d, _ := v.Default()
	return d
}

func lookupString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := resolved(fv).String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lookupBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := resolved(fv).Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func lookupStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := resolved(fv).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError reports a malformed catalog source with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
