package pythondecl

import (
	"io"

	"github.com/kiteco/typeinfer/kite-golib/errors"
	"github.com/tinylib/msgp/msgp"
)

// type tags in the binary encoding
const (
	anythingTag = iota
	nothingTag
	namedTag
	unionTag
	unknownTag
)

// Encode writes m to w in MessagePack
func Encode(w io.Writer, m *Module) error {
	return msgp.Encode(w, m)
}

// Decode reads a module written by Encode
func Decode(r io.Reader) (*Module, error) {
	var m Module
	if err := msgp.Decode(r, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding declarations")
	}
	return &m, nil
}

// EncodeMsg implements msgp.Encodable
func (m *Module) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteArrayHeader(5); err != nil {
		return err
	}
	if err := en.WriteString(m.Name); err != nil {
		return err
	}
	if err := en.WriteArrayHeader(uint32(len(m.Constants))); err != nil {
		return err
	}
	for _, c := range m.Constants {
		if err := encodeConstant(en, c); err != nil {
			return err
		}
	}
	if err := en.WriteArrayHeader(uint32(len(m.Functions))); err != nil {
		return err
	}
	for _, f := range m.Functions {
		if err := encodeFunction(en, f); err != nil {
			return err
		}
	}
	if err := en.WriteArrayHeader(uint32(len(m.Classes))); err != nil {
		return err
	}
	for _, c := range m.Classes {
		if err := encodeClass(en, c); err != nil {
			return err
		}
	}
	return encodeStrings(en, m.Diagnostics)
}

// DecodeMsg implements msgp.Decodable
func (m *Module) DecodeMsg(dc *msgp.Reader) error {
	if err := expectArray(dc, 5); err != nil {
		return err
	}
	var err error
	if m.Name, err = dc.ReadString(); err != nil {
		return err
	}

	n, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	m.Constants = nil
	for ; n > 0; n-- {
		c, err := decodeConstant(dc)
		if err != nil {
			return err
		}
		m.Constants = append(m.Constants, c)
	}

	if n, err = dc.ReadArrayHeader(); err != nil {
		return err
	}
	m.Functions = nil
	for ; n > 0; n-- {
		f, err := decodeFunction(dc)
		if err != nil {
			return err
		}
		m.Functions = append(m.Functions, f)
	}

	if n, err = dc.ReadArrayHeader(); err != nil {
		return err
	}
	m.Classes = nil
	for ; n > 0; n-- {
		c, err := decodeClass(dc)
		if err != nil {
			return err
		}
		m.Classes = append(m.Classes, c)
	}

	m.Diagnostics, err = decodeStrings(dc)
	return err
}

func expectArray(dc *msgp.Reader, want uint32) error {
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	if n != want {
		return errors.Errorf("expected %d fields, got %d", want, n)
	}
	return nil
}

func encodeStrings(en *msgp.Writer, ss []string) error {
	if err := en.WriteArrayHeader(uint32(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := en.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

func decodeStrings(dc *msgp.Reader) ([]string, error) {
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	var out []string
	for ; n > 0; n-- {
		s, err := dc.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func encodeConstant(en *msgp.Writer, c *Constant) error {
	if err := en.WriteArrayHeader(2); err != nil {
		return err
	}
	if err := en.WriteString(c.Name); err != nil {
		return err
	}
	return encodeType(en, c.Type)
}

func decodeConstant(dc *msgp.Reader) (*Constant, error) {
	if err := expectArray(dc, 2); err != nil {
		return nil, err
	}
	name, err := dc.ReadString()
	if err != nil {
		return nil, err
	}
	t, err := decodeType(dc)
	if err != nil {
		return nil, err
	}
	return &Constant{Name: name, Type: t}, nil
}

func encodeFunction(en *msgp.Writer, f *Function) error {
	if err := en.WriteArrayHeader(5); err != nil {
		return err
	}
	if err := en.WriteString(f.Name); err != nil {
		return err
	}
	if err := en.WriteArrayHeader(uint32(len(f.Params))); err != nil {
		return err
	}
	for _, p := range f.Params {
		if err := en.WriteArrayHeader(4); err != nil {
			return err
		}
		if err := en.WriteString(p.Name); err != nil {
			return err
		}
		if err := en.WriteInt(int(p.Kind)); err != nil {
			return err
		}
		if err := encodeType(en, p.Type); err != nil {
			return err
		}
		if err := en.WriteBool(p.HasDefault); err != nil {
			return err
		}
	}
	if err := encodeType(en, f.Return); err != nil {
		return err
	}
	if err := encodeTypes(en, f.Raises); err != nil {
		return err
	}
	return encodeStrings(en, f.Diagnostics)
}

func decodeFunction(dc *msgp.Reader) (*Function, error) {
	if err := expectArray(dc, 5); err != nil {
		return nil, err
	}
	f := &Function{}
	var err error
	if f.Name, err = dc.ReadString(); err != nil {
		return nil, err
	}
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	for ; n > 0; n-- {
		if err := expectArray(dc, 4); err != nil {
			return nil, err
		}
		p := &Param{}
		if p.Name, err = dc.ReadString(); err != nil {
			return nil, err
		}
		kind, err := dc.ReadInt()
		if err != nil {
			return nil, err
		}
		p.Kind = ParamKind(kind)
		if p.Type, err = decodeType(dc); err != nil {
			return nil, err
		}
		if p.HasDefault, err = dc.ReadBool(); err != nil {
			return nil, err
		}
		f.Params = append(f.Params, p)
	}
	if f.Return, err = decodeType(dc); err != nil {
		return nil, err
	}
	if f.Raises, err = decodeTypes(dc); err != nil {
		return nil, err
	}
	if f.Diagnostics, err = decodeStrings(dc); err != nil {
		return nil, err
	}
	return f, nil
}

func encodeClass(en *msgp.Writer, c *Class) error {
	if err := en.WriteArrayHeader(4); err != nil {
		return err
	}
	if err := en.WriteString(c.Name); err != nil {
		return err
	}
	if err := encodeTypes(en, c.Bases); err != nil {
		return err
	}
	if err := en.WriteArrayHeader(uint32(len(c.Attrs))); err != nil {
		return err
	}
	for _, a := range c.Attrs {
		if err := encodeConstant(en, a); err != nil {
			return err
		}
	}
	if err := en.WriteArrayHeader(uint32(len(c.Methods))); err != nil {
		return err
	}
	for _, m := range c.Methods {
		if err := encodeFunction(en, m); err != nil {
			return err
		}
	}
	return nil
}

func decodeClass(dc *msgp.Reader) (*Class, error) {
	if err := expectArray(dc, 4); err != nil {
		return nil, err
	}
	c := &Class{}
	var err error
	if c.Name, err = dc.ReadString(); err != nil {
		return nil, err
	}
	if c.Bases, err = decodeTypes(dc); err != nil {
		return nil, err
	}
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	for ; n > 0; n-- {
		a, err := decodeConstant(dc)
		if err != nil {
			return nil, err
		}
		c.Attrs = append(c.Attrs, a)
	}
	if n, err = dc.ReadArrayHeader(); err != nil {
		return nil, err
	}
	for ; n > 0; n-- {
		m, err := decodeFunction(dc)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func encodeTypes(en *msgp.Writer, ts []Type) error {
	if err := en.WriteArrayHeader(uint32(len(ts))); err != nil {
		return err
	}
	for _, t := range ts {
		if err := encodeType(en, t); err != nil {
			return err
		}
	}
	return nil
}

func decodeTypes(dc *msgp.Reader) ([]Type, error) {
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	var out []Type
	for ; n > 0; n-- {
		t, err := decodeType(dc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// encodeType writes nil for an absent type, otherwise [tag, fields...]
func encodeType(en *msgp.Writer, t Type) error {
	if t == nil {
		return en.WriteNil()
	}
	switch t := t.(type) {
	case Anything:
		if err := en.WriteArrayHeader(1); err != nil {
			return err
		}
		return en.WriteInt(anythingTag)
	case Nothing:
		if err := en.WriteArrayHeader(1); err != nil {
			return err
		}
		return en.WriteInt(nothingTag)
	case Named:
		if err := en.WriteArrayHeader(3); err != nil {
			return err
		}
		if err := en.WriteInt(namedTag); err != nil {
			return err
		}
		if err := en.WriteString(t.Name); err != nil {
			return err
		}
		return encodeTypes(en, t.Params)
	case Union:
		if err := en.WriteArrayHeader(2); err != nil {
			return err
		}
		if err := en.WriteInt(unionTag); err != nil {
			return err
		}
		return encodeTypes(en, t.Members)
	case Unknown:
		if err := en.WriteArrayHeader(2); err != nil {
			return err
		}
		if err := en.WriteInt(unknownTag); err != nil {
			return err
		}
		return en.WriteString(t.Name)
	}
	return errors.Errorf("cannot encode type %T", t)
}

func decodeType(dc *msgp.Reader) (Type, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.Errorf("empty type")
	}
	tag, err := dc.ReadInt()
	if err != nil {
		return nil, err
	}
	switch {
	case tag == anythingTag && n == 1:
		return Anything{}, nil
	case tag == nothingTag && n == 1:
		return Nothing{}, nil
	case tag == namedTag && n == 3:
		name, err := dc.ReadString()
		if err != nil {
			return nil, err
		}
		params, err := decodeTypes(dc)
		if err != nil {
			return nil, err
		}
		return Named{Name: name, Params: params}, nil
	case tag == unionTag && n == 2:
		members, err := decodeTypes(dc)
		if err != nil {
			return nil, err
		}
		return Union{Members: members}, nil
	case tag == unknownTag && n == 2:
		name, err := dc.ReadString()
		if err != nil {
			return nil, err
		}
		return Unknown{Name: name}, nil
	}
	return nil, errors.Errorf("bad type tag %d with %d fields", tag, n)
}
