package cstruct

import (
	"fmt"
	"strings"
)

var cTypes = [numTypes]string{
	UINT8:   "uint8_t",
	UINT16:  "uint16_t",
	UINT32:  "uint32_t",
	UINT64:  "uint64_t",
	INT8:    "int8_t",
	INT16:   "int16_t",
	INT32:   "int32_t",
	INT64:   "int64_t",
	FLOAT32: "float",
	FLOAT64: "double",
	CHAR:    "uint8_t",
	STRING:  "char",
	BIT8:    "uint8_t",
	BIT16:   "uint16_t",
}

// CDecl renders the referenced definition as C struct declarations, preceded
// by the declarations of the structures it nests. It works from the field
// declarations alone and computes no layout; byte order is not representable.
func (r *Registry) CDecl(ref Ref) (string, error) {
	var sb strings.Builder
	if err := r.cdecl(&sb, ref, make(map[*Definition]bool)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Registry) cdecl(sb *strings.Builder, ref Ref, done map[*Definition]bool) error {
	def, err := r.resolve(ref)
	if err != nil {
		return err
	}
	if done[def] {
		return nil
	}
	done[def] = true

	fields := def.Fields()
	for _, f := range fields {
		if f.Type == STRUCT {
			if err := r.cdecl(sb, f.Struct, done); err != nil {
				return fmt.Errorf("%s.%s: %w", def.name, f.Name, err)
			}
		}
	}

	fmt.Fprintf(sb, "struct %s {\n", def.name)
	for i, f := range fields {
		name := f.Name
		if name == "" && f.Type.Kind() != KindBits {
			name = fmt.Sprintf("_%d", i)
		}

		sb.WriteString("\t")
		switch f.Type.Kind() {
		case KindStruct:
			fmt.Fprintf(sb, "struct %s %s;", f.Struct.Name(), name)
		case KindBytes, KindString:
			fmt.Fprintf(sb, "%s %s[%d];", cTypes[f.Type], name, f.Size)
		case KindBits:
			if name == "" {
				fmt.Fprintf(sb, "%s : %d;", cTypes[f.Type], f.Bits)
			} else {
				fmt.Fprintf(sb, "%s %s : %d;", cTypes[f.Type], name, f.Bits)
			}
		default:
			fmt.Fprintf(sb, "%s %s;", cTypes[f.Type], name)
		}
		if f.Default != nil {
			sb.WriteString(" /* = " + cLiteral(f.Default) + " */")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("};\n")
	return nil
}

func cLiteral(v any) string {
	switch d := v.(type) {
	case string:
		return fmt.Sprintf("%q", d)
	case []byte:
		var sb strings.Builder
		sb.WriteString("{")
		for i, b := range d {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "0x%02x", b)
		}
		sb.WriteString("}")
		return sb.String()
	case bool:
		if d {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}
