// Package pvdef validates and normalizes PV declarations into records ready
// for registration with the native server.
//
// A declaration is loosely typed, as it usually comes from a config file: a
// map from field name to value. Validate checks it without side effects;
// Normalize fills defaults and encodes the initial value; Table produces the
// native registration records.
package pvdef

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Declaration is one host-authored PV definition.
type Declaration map[string]interface{}

// Recognized declaration fields.
const (
	FieldName   = "name"
	FieldType   = "type"
	FieldCount  = "count"
	FieldScan   = "scan"
	FieldEnums  = "enums"
	FieldStates = "states"
	FieldPrec   = "prec"
	FieldUnit   = "unit"
	FieldHilim  = "hilim"
	FieldLolim  = "lolim"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldHihi   = "hihi"
	FieldLolo   = "lolo"
	FieldMdel   = "mdel"
	FieldAdel   = "adel"
	FieldSoft   = "soft"
	FieldValue  = "value"
)

// Fields lists every recognized field in canonical order.
var Fields = []string{
	FieldName, FieldType, FieldCount, FieldScan, FieldEnums, FieldStates,
	FieldPrec, FieldUnit, FieldHilim, FieldLolim, FieldHigh, FieldLow,
	FieldHihi, FieldLolo, FieldMdel, FieldAdel, FieldSoft, FieldValue,
}

var knownFields = func() map[string]bool {
	m := make(map[string]bool, len(Fields))
	for _, f := range Fields {
		m[f] = true
	}
	return m
}()

// Name returns the declared name, or "" if absent or not a string.
func (d Declaration) Name() string {
	s, _ := d[FieldName].(string)
	return s
}

// unknownFields returns fields outside the recognized set, sorted so
// validation reports the same field every run.
func (d Declaration) unknownFields() []string {
	var out []string
	for k := range d {
		if !knownFields[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// File is the on-disk layout of a declaration file.
type File struct {
	PVs []Declaration `yaml:"pvs"`
}

// Parse decodes a YAML declaration document.
func Parse(data []byte) ([]Declaration, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse PV declarations: %w", err)
	}
	return f.PVs, nil
}

// Load reads and parses a YAML declaration file. It does not validate.
func Load(path string) ([]Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}
