package cstruct

import (
	"fmt"

	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"
)

// Schema is the YAML form of a set of definitions:
//
//	structs:
//	  - name: Header
//	    fields:
//	      - {name: magic, type: UINT16, default: 0xCAFE}
//	      - {name: label, type: STRING, size: 8, encoding: ISO-8859-1}
//	      - {name: inner, type: STRUCT, struct: Inner}
//	      - {name: flag, type: BIT8, bits: 1}
type Schema struct {
	Structs []SchemaStruct `yaml:"structs"`
}

// SchemaStruct is one definition of a Schema.
type SchemaStruct struct {
	Name   string        `yaml:"name"`
	Fields []SchemaField `yaml:"fields"`
}

// SchemaField is one field declaration of a SchemaStruct.
type SchemaField struct {
	Name     string `yaml:"name,omitempty"`
	Type     string `yaml:"type"`
	Size     int    `yaml:"size,omitempty"`
	Bits     int    `yaml:"bits,omitempty"`
	Struct   string `yaml:"struct,omitempty"`
	Default  any    `yaml:"default,omitempty"`
	Encoding string `yaml:"encoding,omitempty"`
}

// LoadYAML declares every structure of a YAML schema document in order.
// Types and encodings of the whole document are resolved before anything is
// declared; structures declared before a later declaration fails stay registered.
func (r *Registry) LoadYAML(data []byte) ([]*Definition, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("cstruct: parsing schema: %w", err)
	}

	decls := make([][]Field, len(s.Structs))
	for i, st := range s.Structs {
		for _, sf := range st.Fields {
			f, err := sf.field()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", st.Name, err)
			}
			decls[i] = append(decls[i], f)
		}
	}

	defs := make([]*Definition, 0, len(s.Structs))
	for i, st := range s.Structs {
		b, err := r.Declare(st.Name)
		if err != nil {
			return defs, err
		}
		for _, f := range decls[i] {
			if err := b.Add(f); err != nil {
				return defs, err
			}
		}
		defs = append(defs, b.Definition())
	}
	return defs, nil
}

func (sf SchemaField) field() (Field, error) {
	t, err := ParseType(sf.Type)
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", sf.Name, err)
	}
	f := Field{Name: sf.Name, Type: t, Size: sf.Size, Bits: sf.Bits, Default: sf.Default}
	if sf.Struct != "" {
		f.Struct = ByName(sf.Struct)
	}
	if sf.Encoding != "" {
		enc, err := ianaindex.IANA.Encoding(sf.Encoding)
		if err != nil || enc == nil {
			return Field{}, fmt.Errorf("%w: field %q: unsupported encoding %q", ErrInvalidType, sf.Name, sf.Encoding)
		}
		f.Encoding = enc
	}
	return f, nil
}

// DumpYAML renders the referenced definitions as a schema document that
// LoadYAML accepts.
func (r *Registry) DumpYAML(refs ...Ref) ([]byte, error) {
	var s Schema
	for _, ref := range refs {
		def, err := r.resolve(ref)
		if err != nil {
			return nil, err
		}
		st := SchemaStruct{Name: def.name}
		for _, f := range def.Fields() {
			sf := SchemaField{
				Name:    f.Name,
				Type:    f.Type.String(),
				Size:    f.Size,
				Bits:    f.Bits,
				Struct:  f.Struct.Name(),
				Default: f.Default,
			}
			if b, ok := f.Default.([]byte); ok {
				sf.Default = string(b)
			}
			if f.Encoding != nil {
				if sf.Encoding, err = ianaindex.IANA.Name(f.Encoding); err != nil {
					return nil, fmt.Errorf("%s.%s: %w", def.name, f.Name, err)
				}
			}
			st.Fields = append(st.Fields, sf)
		}
		s.Structs = append(s.Structs, st)
	}
	return yaml.Marshal(&s)
}
