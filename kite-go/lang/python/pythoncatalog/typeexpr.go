package pythoncatalog

import (
	"strings"
	"unicode"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
)

// Stub signatures are written in a compact form:
//
//   (self, x: int or float, y: list[T] = ..., *args, **kwargs) -> T raises KeyError
//
// Types are class names with optional parameters, unions joined by "or",
// "?" for any value and "nothing" for no value. Names that are type parameters
// of the enclosing class, or that look like T, K, V, T2, are type variables.

type token struct {
	text string
	pos  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '_' || c == '.' || unicode.IsLetter(c) || unicode.IsDigit(c):
			start := i
			for i < len(s) && (s[i] == '_' || s[i] == '.' || unicode.IsLetter(rune(s[i])) || unicode.IsDigit(rune(s[i]))) {
				i++
			}
			toks = append(toks, token{s[start:i], start})
		case strings.HasPrefix(s[i:], "->"), strings.HasPrefix(s[i:], "**"):
			toks = append(toks, token{s[i : i+2], i})
			i += 2
		case strings.ContainsRune("()[],:=*?", c):
			toks = append(toks, token{s[i : i+1], i})
			i++
		default:
			return nil, errors.Errorf("unexpected %q at %d", c, i)
		}
	}
	return toks, nil
}

type resolver func(name string) (pythonvalue.Value, error)

type parser struct {
	src     string
	toks    []token
	pos     int
	resolve resolver
}

func newParser(src string, resolve resolver) (*parser, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, errors.Wrapf(err, "%q", src)
	}
	return &parser{src: src, toks: toks, resolve: resolve}, nil
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].text
	}
	return ""
}

func (p *parser) next() string {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) expect(text string) error {
	if got := p.next(); got != text {
		return p.errorf("expected %q, got %q", text, got)
	}
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "parsing %q", p.src)
}

func (p *parser) done() error {
	if p.pos != len(p.toks) {
		return p.errorf("trailing %q", p.peek())
	}
	return nil
}

// parseType parses alternatives joined by "or"
func (p *parser) parseType() (pythonvalue.Value, error) {
	var alts []pythonvalue.Value
	for {
		v, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		alts = append(alts, v)
		if p.peek() != "or" {
			break
		}
		p.next()
	}
	// keep type variables distinct from instances in unions
	return pythonvalue.Unite(alts...), nil
}

func (p *parser) parseAtom() (pythonvalue.Value, error) {
	name := p.next()
	switch name {
	case "?":
		return pythonvalue.Unsolvable{}, nil
	case "nothing":
		return nil, nil
	case "", "(", ")", "[", "]", ",", ":", "=", "*", "**", "->":
		return nil, p.errorf("expected a type, got %q", name)
	}
	v, err := p.resolve(name)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	if p.peek() != "[" {
		if inst, ok := v.(pythonvalue.Instance); ok && inst.Class.Generic() {
			// a bare generic name has unknown parameters
			params := make([]pythonvalue.Value, len(inst.Class.TypeParams))
			for i := range params {
				params[i] = pythonvalue.Unsolvable{}
			}
			return pythonvalue.NewInstance(inst.Class, params...), nil
		}
		return v, nil
	}
	inst, ok := v.(pythonvalue.Instance)
	if !ok {
		return nil, p.errorf("%s does not take parameters", name)
	}
	p.next()
	var params []pythonvalue.Value
	for {
		param, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.peek() == "]" {
			p.next()
			break
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
	if len(params) != len(inst.Class.TypeParams) {
		return nil, p.errorf("%s takes %d parameters, got %d", name, len(inst.Class.TypeParams), len(params))
	}
	return pythonvalue.NewInstance(inst.Class, params...), nil
}

// parseSignature parses "(params) -> type [raises type, ...]"
func (p *parser) parseSignature() (*pythonvalue.Signature, error) {
	sig := &pythonvalue.Signature{}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	for p.peek() != ")" {
		star := ""
		if t := p.peek(); t == "*" || t == "**" {
			star = p.next()
		}
		name := p.next()
		if name == "" || !isIdent(name) {
			return nil, p.errorf("expected a parameter name, got %q", name)
		}
		param := pythonvalue.Param{Name: name}
		if p.peek() == ":" {
			p.next()
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			param.Type = t
		}
		if p.peek() == "=" {
			p.next()
			if err := p.expect("..."); err != nil {
				return nil, err
			}
			param.HasDefault = true
		}
		switch star {
		case "*":
			sig.Vararg = &param
		case "**":
			sig.Kwarg = &param
		default:
			sig.Params = append(sig.Params, param)
		}
		if p.peek() == ")" {
			break
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
	p.next()
	if err := p.expect("->"); err != nil {
		return nil, err
	}
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	sig.Return = ret
	if p.peek() == "raises" {
		p.next()
		for {
			exc, err := p.parseAtom()
			if err != nil {
				return nil, err
			}
			sig.Raises = append(sig.Raises, exc)
			if p.peek() != "," {
				break
			}
			p.next()
		}
	}
	return sig, p.done()
}

func isIdent(s string) bool {
	for i, c := range s {
		if c == '_' || unicode.IsLetter(c) || (i > 0 && unicode.IsDigit(c)) {
			continue
		}
		return false
	}
	return s != ""
}

// looksLikeTypeVar matches the conventional names T, K, V, T2, ...
func looksLikeTypeVar(name string) bool {
	if len(name) == 0 || len(name) > 2 || !unicode.IsUpper(rune(name[0])) {
		return false
	}
	return len(name) == 1 || unicode.IsDigit(rune(name[1]))
}
