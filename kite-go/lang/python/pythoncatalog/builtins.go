package pythoncatalog

import (
	"strings"

	"github.com/kiteco/typeinfer/kite-golib/errors"
)

// Builtins returns a catalog holding the builtins module and a handful of
// standard library modules. Each call returns an independent catalog.
func Builtins() *Stubs {
	s := NewStubs()
	for _, doc := range builtinStubs {
		if err := s.LoadYAML(strings.NewReader(doc)); err != nil {
			panic(errors.Wrapf(err, "loading builtin stubs"))
		}
	}
	return s
}

// the builtins module must come first: the other modules refer to its classes
var builtinStubs = []string{builtinsStub, sysStub, osStub, osPathStub, timeStub}

const builtinsStub = `
module: builtins
classes:
  - name: object
    methods:
      __init__: ["(self) -> NoneType"]
      __repr__: ["(self) -> str"]
      __str__: ["(self) -> str"]
      __eq__: ["(self, other) -> bool"]
      __ne__: ["(self, other) -> bool"]
      __hash__: ["(self) -> int"]
  - name: type
    methods:
      __call__: ["(self, *args, **kwargs) -> ?"]
    attrs:
      __name__: str
  - name: NoneType
  - name: int
    methods:
      __init__: ["(self, x = ..., base: int = ...) -> NoneType"]
      __add__: &intarith
        - "(self, y: int) -> int"
        - "(self, y: float) -> float"
        - "(self, y: complex) -> complex"
      __sub__: *intarith
      __mul__: *intarith
      __floordiv__: &intdiv
        - "(self, y: int) -> int raises ZeroDivisionError"
        - "(self, y: float) -> float raises ZeroDivisionError"
      __mod__: *intdiv
      __truediv__:
        - "(self, y: int or float) -> float raises ZeroDivisionError"
        - "(self, y: complex) -> complex raises ZeroDivisionError"
      __pow__:
        - "(self, y: int) -> int or float"
        - "(self, y: float) -> float"
        - "(self, y: complex) -> complex"
      __and__: ["(self, y: int) -> int"]
      __or__: ["(self, y: int) -> int"]
      __xor__: ["(self, y: int) -> int"]
      __lshift__: ["(self, y: int) -> int"]
      __rshift__: ["(self, y: int) -> int"]
      __neg__: ["(self) -> int"]
      __pos__: ["(self) -> int"]
      __abs__: ["(self) -> int"]
      __invert__: ["(self) -> int"]
      __lt__: ["(self, y: int or float) -> bool"]
      __gt__: ["(self, y: int or float) -> bool"]
      bit_length: ["(self) -> int"]
  - name: bool
    bases: [int]
  - name: float
    methods:
      __init__: ["(self, x = ...) -> NoneType"]
      __add__: &floatarith
        - "(self, y: int or float) -> float"
        - "(self, y: complex) -> complex"
      __sub__: *floatarith
      __mul__: *floatarith
      __pow__: *floatarith
      __truediv__: &floatdiv
        - "(self, y: int or float) -> float raises ZeroDivisionError"
        - "(self, y: complex) -> complex raises ZeroDivisionError"
      __floordiv__: *floatdiv
      __mod__: *floatdiv
      __neg__: ["(self) -> float"]
      __pos__: ["(self) -> float"]
      __abs__: ["(self) -> float"]
      __lt__: ["(self, y: int or float) -> bool"]
      __gt__: ["(self, y: int or float) -> bool"]
      is_integer: ["(self) -> bool"]
  - name: complex
    methods:
      __init__: ["(self, real: int or float = ..., imag: int or float = ...) -> NoneType"]
      __add__: &complexarith ["(self, y: int or float or complex) -> complex"]
      __sub__: *complexarith
      __mul__: *complexarith
      __pow__: *complexarith
      __truediv__: ["(self, y: int or float or complex) -> complex raises ZeroDivisionError"]
      __neg__: ["(self) -> complex"]
      __abs__: ["(self) -> float"]
      conjugate: ["(self) -> complex"]
    attrs:
      real: float
      imag: float
  - name: str
    methods:
      __init__: ["(self, x = ...) -> NoneType"]
      __add__: ["(self, y: str) -> str"]
      __mul__: ["(self, n: int) -> str"]
      __mod__: ["(self, args) -> str"]
      __getitem__: ["(self, i: int) -> str raises IndexError"]
      __len__: ["(self) -> int"]
      __contains__: ["(self, x: str) -> bool"]
      __iter__: ["(self) -> iterator[str]"]
      __lt__: ["(self, y: str) -> bool"]
      __gt__: ["(self, y: str) -> bool"]
      join: ["(self, iterable) -> str"]
      split: ["(self, sep: str = ..., maxsplit: int = ...) -> list[str]"]
      upper: ["(self) -> str"]
      lower: ["(self) -> str"]
      strip: ["(self, chars: str = ...) -> str"]
      startswith: ["(self, prefix: str) -> bool"]
      endswith: ["(self, suffix: str) -> bool"]
      format: ["(self, *args, **kwargs) -> str"]
      replace: ["(self, old: str, new: str, count: int = ...) -> str"]
      find: ["(self, sub: str) -> int"]
      index: ["(self, sub: str) -> int raises ValueError"]
      encode: ["(self, encoding: str = ...) -> bytes"]
  - name: bytes
    methods:
      __add__: ["(self, y: bytes) -> bytes"]
      __len__: ["(self) -> int"]
      __getitem__: ["(self, i: int) -> int raises IndexError"]
      decode: ["(self, encoding: str = ...) -> str"]
  - name: iterator
    params: [T]
    methods:
      __iter__: ["(self) -> iterator[T]"]
      __next__: ["(self) -> T raises StopIteration"]
  - name: list
    params: [T]
    methods:
      __init__:
        - "(self) -> NoneType"
        - "(self, iterable: list[T] or tuple[T] or set[T] or iterator[T]) -> NoneType"
        - "(self, iterable: str) -> NoneType"
      __getitem__: ["(self, i: int) -> T raises IndexError"]
      __setitem__: ["(self, i: int, x: T) -> NoneType raises IndexError"]
      __len__: ["(self) -> int"]
      __contains__: ["(self, x) -> bool"]
      __iter__: ["(self) -> iterator[T]"]
      __add__: ["(self, y: list[T]) -> list[T]"]
      __mul__: ["(self, n: int) -> list[T]"]
      append: ["(self, x: T) -> NoneType"]
      extend: ["(self, iterable: list[T]) -> NoneType"]
      insert: ["(self, i: int, x: T) -> NoneType"]
      pop: ["(self, i: int = ...) -> T raises IndexError"]
      index: ["(self, x) -> int raises ValueError"]
      count: ["(self, x) -> int"]
      sort: ["(self, key = ..., reverse: bool = ...) -> NoneType"]
      reverse: ["(self) -> NoneType"]
  - name: tuple
    params: [T]
    methods:
      __getitem__: ["(self, i: int) -> T raises IndexError"]
      __len__: ["(self) -> int"]
      __contains__: ["(self, x) -> bool"]
      __iter__: ["(self) -> iterator[T]"]
      __add__: ["(self, y: tuple[T]) -> tuple[T]"]
      count: ["(self, x) -> int"]
      index: ["(self, x) -> int raises ValueError"]
  - name: dict
    params: [K, V]
    methods:
      __getitem__: ["(self, k: K) -> V raises KeyError"]
      __setitem__: ["(self, k: K, v: V) -> NoneType"]
      __len__: ["(self) -> int"]
      __contains__: ["(self, k) -> bool"]
      __iter__: ["(self) -> iterator[K]"]
      get:
        - "(self, k: K) -> V or NoneType"
        - "(self, k: K, default: V) -> V"
      keys: ["(self) -> list[K]"]
      values: ["(self) -> list[V]"]
      items: ["(self) -> list[tuple[K or V]]"]
      pop: ["(self, k: K) -> V raises KeyError"]
      setdefault: ["(self, k: K, default: V) -> V"]
      update: ["(self, other: dict[K, V]) -> NoneType"]
      copy: ["(self) -> dict[K, V]"]
  - name: set
    params: [T]
    methods:
      __len__: ["(self) -> int"]
      __contains__: ["(self, x) -> bool"]
      __iter__: ["(self) -> iterator[T]"]
      __or__: ["(self, y: set[T]) -> set[T]"]
      __and__: ["(self, y: set[T]) -> set[T]"]
      add: ["(self, x: T) -> NoneType"]
      remove: ["(self, x: T) -> NoneType raises KeyError"]
      discard: ["(self, x: T) -> NoneType"]
      union: ["(self, y: set[T]) -> set[T]"]
  - name: function
    methods:
      __call__: ["(self, *args, **kwargs) -> ?"]
    attrs:
      __name__: str
  - name: module
    attrs:
      __name__: str
  - name: BaseException
    methods:
      __init__: ["(self, *args) -> NoneType"]
    attrs:
      args: tuple[?]
  - {name: Exception, bases: [BaseException]}
  - {name: KeyboardInterrupt, bases: [BaseException]}
  - {name: StopIteration, bases: [Exception]}
  - {name: ArithmeticError, bases: [Exception]}
  - {name: ZeroDivisionError, bases: [ArithmeticError]}
  - {name: LookupError, bases: [Exception]}
  - {name: IndexError, bases: [LookupError]}
  - {name: KeyError, bases: [LookupError]}
  - {name: ValueError, bases: [Exception]}
  - {name: TypeError, bases: [Exception]}
  - {name: AttributeError, bases: [Exception]}
  - {name: NameError, bases: [Exception]}
  - {name: RuntimeError, bases: [Exception]}
  - {name: NotImplementedError, bases: [RuntimeError]}
  - {name: OSError, bases: [Exception]}
  - {name: IOError, bases: [OSError]}
  - {name: ImportError, bases: [Exception]}
  - {name: AssertionError, bases: [Exception]}
functions:
  repr: ["(x: object) -> str"]
  len: ["(x: object) -> int"]
  isinstance: ["(obj: object, cls) -> bool"]
  issubclass: ["(cls: type, classinfo) -> bool"]
  hasattr: ["(obj: object, name: str) -> bool"]
  getattr: ["(obj: object, name: str, default = ...) -> ?"]
  setattr: ["(obj: object, name: str, value) -> NoneType"]
  callable: ["(obj: object) -> bool"]
  id: ["(obj: object) -> int"]
  hash: ["(obj: object) -> int"]
  abs:
    - "(x: int) -> int"
    - "(x: float) -> float"
    - "(x: complex) -> float"
  pow:
    - "(x: int, y: int) -> int or float"
    - "(x: int or float, y: int or float) -> float"
    - "(x: int or float or complex, y: int or float or complex) -> complex"
  max:
    - "(x: T, y: T) -> T"
    - "(iterable: list[T]) -> T raises ValueError"
  min:
    - "(x: T, y: T) -> T"
    - "(iterable: list[T]) -> T raises ValueError"
  sum:
    - "(iterable: list[T] or tuple[T] or set[T] or iterator[T]) -> T or int"
  range:
    - "(stop: int) -> list[int]"
    - "(start: int, stop: int, step: int = ...) -> list[int]"
  sorted:
    - "(iterable: list[T] or tuple[T] or set[T] or iterator[T], key = ..., reverse: bool = ...) -> list[T]"
    - "(iterable: str) -> list[str]"
  enumerate:
    - "(iterable: list[T] or tuple[T] or set[T] or iterator[T]) -> iterator[tuple[int or T]]"
  iter:
    - "(x: list[T] or tuple[T] or set[T] or iterator[T]) -> iterator[T]"
    - "(x: str) -> iterator[str]"
  next:
    - "(it: iterator[T]) -> T raises StopIteration"
    - "(it: iterator[T], default: T) -> T"
  print: ["(*args, **kwargs) -> NoneType"]
  input: ["(prompt: str = ...) -> str"]
  chr: ["(i: int) -> str"]
  ord: ["(c: str) -> int"]
  hex: ["(x: int) -> str"]
  divmod:
    - "(x: int, y: int) -> tuple[int] raises ZeroDivisionError"
    - "(x: int or float, y: int or float) -> tuple[float] raises ZeroDivisionError"
  eval: ["(source, globals = ..., locals = ...) -> ?"]
  __any_object__: ["() -> ?"]
`

const sysStub = `
module: sys
functions:
  exit: ["(code = ...) -> nothing"]
  getrecursionlimit: ["() -> int"]
constants:
  argv: list[str]
  path: list[str]
  maxsize: int
  platform: str
  version: str
`

const osStub = `
module: os
functions:
  getcwd: ["() -> str"]
  listdir: ["(path: str = ...) -> list[str] raises OSError"]
  getenv: ["(key: str, default: str = ...) -> str or NoneType"]
  remove: ["(path: str) -> NoneType raises OSError"]
constants:
  sep: str
  environ: dict[str, str]
`

const osPathStub = `
module: os.path
functions:
  join: ["(a: str, *p: str) -> str"]
  exists: ["(path: str) -> bool"]
  basename: ["(path: str) -> str"]
  dirname: ["(path: str) -> str"]
`

const timeStub = `
module: time
functions:
  time: ["() -> float"]
  sleep: ["(secs: int or float) -> NoneType"]
`
