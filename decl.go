package cpp2c

import (
	"fmt"
	"strings"
)

// The declaration model is the facade the translation engine works
// against. An external parser (see gccxml.go) populates it; tests build
// it directly. Every declaration knows its parent so qualified names can
// be reconstructed without asking the parser again.

type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

type Virtuality int

const (
	VirtualityNone Virtuality = iota
	VirtualityVirtual
	VirtualityPure
)

// DeclKind classifies a callable declaration.
type DeclKind int

const (
	FreeFunc DeclKind = iota
	FreeOp
	MemberFunc
	MemberOp
	Ctor
	Dtor
)

func (k DeclKind) String() string {
	switch k {
	case FreeFunc:
		return "free function"
	case FreeOp:
		return "free operator"
	case MemberFunc:
		return "member function"
	case MemberOp:
		return "member operator"
	case Ctor:
		return "constructor"
	case Dtor:
		return "destructor"
	}
	return "unknown"
}

// Decl is any named declaration hanging off a namespace tree.
type Decl interface {
	DeclName() string
	DeclParent() Decl
	setParent(Decl)
}

// FullName joins a declaration's path with "::". Declarations directly
// under the root namespace have no prefix: FullName of class C inside
// namespace N is "N::C".
func FullName(d Decl) string {
	if d == nil {
		return ""
	}
	parent := d.DeclParent()
	if parent == nil {
		return d.DeclName()
	}
	if pn := FullName(parent); pn != "" {
		return pn + "::" + d.DeclName()
	}
	return d.DeclName()
}

// Namespace is an interior node of the declaration tree. The root
// namespace has an empty name.
type Namespace struct {
	Name   string
	Decls  []Decl
	parent Decl
}

func (n *Namespace) DeclName() string   { return n.Name }
func (n *Namespace) DeclParent() Decl   { return n.parent }
func (n *Namespace) setParent(p Decl)   { n.parent = p }
func (n *Namespace) Add(decls ...Decl) *Namespace {
	for _, d := range decls {
		d.setParent(n)
		n.Decls = append(n.Decls, d)
	}
	return n
}

func (n *Namespace) walk(fn func(Decl)) {
	for _, d := range n.Decls {
		fn(d)
		if sub, ok := d.(*Namespace); ok {
			sub.walk(fn)
		}
	}
}

// ClassByName resolves a qualified class name (with or without a leading
// "::") to its definition, or nil when only a forward declaration is
// known.
func (n *Namespace) ClassByName(name string) *Class {
	name = strings.TrimLeft(name, ":")
	var found *Class
	n.walk(func(d Decl) {
		if cls, ok := d.(*Class); ok && found == nil && FullName(cls) == name {
			found = cls
		}
	})
	return found
}

// TypedefByName resolves a qualified typedef name, or nil.
func (n *Namespace) TypedefByName(name string) *Typedef {
	name = strings.TrimLeft(name, ":")
	var found *Typedef
	n.walk(func(d Decl) {
		if td, ok := d.(*Typedef); ok && found == nil && FullName(td) == name {
			found = td
		}
	})
	return found
}

func (n *Namespace) ClassesInFile(file string) []*Class {
	var out []*Class
	n.walk(func(d Decl) {
		if cls, ok := d.(*Class); ok && cls.File == file {
			out = append(out, cls)
		}
	})
	return out
}

func (n *Namespace) TypedefsInFile(file string) []*Typedef {
	var out []*Typedef
	n.walk(func(d Decl) {
		if td, ok := d.(*Typedef); ok && td.File == file {
			out = append(out, td)
		}
	})
	return out
}

func (n *Namespace) EnumsInFile(file string) []*Enum {
	var out []*Enum
	n.walk(func(d Decl) {
		if e, ok := d.(*Enum); ok && e.File == file {
			out = append(out, e)
		}
	})
	return out
}

func (n *Namespace) freeCallablesInFile(file string, kind DeclKind) []*Function {
	var out []*Function
	n.walk(func(d Decl) {
		if f, ok := d.(*Function); ok && f.File == file && f.Kind == kind {
			out = append(out, f)
		}
	})
	return out
}

func (n *Namespace) FreeFunctionsInFile(file string) []*Function {
	return n.freeCallablesInFile(file, FreeFunc)
}

func (n *Namespace) FreeOperatorsInFile(file string) []*Function {
	return n.freeCallablesInFile(file, FreeOp)
}

// Class is a class definition: its callable members are visible.
type Class struct {
	Name    string
	File    string
	Members []*Function
	parent  Decl
}

func (c *Class) DeclName() string { return c.Name }
func (c *Class) DeclParent() Decl { return c.parent }
func (c *Class) setParent(p Decl) { c.parent = p }

func (c *Class) Add(members ...*Function) *Class {
	for _, m := range members {
		m.parent = c
		c.Members = append(c.Members, m)
	}
	return c
}

func (c *Class) membersOfKind(kind DeclKind) []*Function {
	var out []*Function
	for _, m := range c.Members {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Constructors returns the declared constructors; a class declaring
// none gets the implicit public default constructor.
func (c *Class) Constructors() []*Function {
	if ctors := c.membersOfKind(Ctor); len(ctors) > 0 {
		return ctors
	}
	return []*Function{{Name: c.Name, Kind: Ctor, Access: AccessPublic, parent: c}}
}

func (c *Class) MemberFunctions() []*Function { return c.membersOfKind(MemberFunc) }
func (c *Class) MemberOperators() []*Function { return c.membersOfKind(MemberOp) }

// Destructor returns the declared destructor, or an implicit public one
// when the class declares none.
func (c *Class) Destructor() *Function {
	for _, m := range c.Members {
		if m.Kind == Dtor {
			return m
		}
	}
	return &Function{Name: "~" + c.Name, Kind: Dtor, Access: AccessPublic, parent: c}
}

func (c *Class) declaresDtor() bool {
	for _, m := range c.Members {
		if m.Kind == Dtor {
			return true
		}
	}
	return false
}

func (c *Class) HasPublicDtor() bool {
	if !c.declaresDtor() {
		return true
	}
	return c.Destructor().Access == AccessPublic
}

// PublicDefaultCtor returns a public zero-argument constructor, declared
// or implicit, or nil when other constructors suppress it.
func (c *Class) PublicDefaultCtor() *Function {
	for _, ctor := range c.Constructors() {
		if ctor.Access == AccessPublic && len(ctor.Args) == 0 {
			return ctor
		}
	}
	return nil
}

// HasPublicCopyCtor reports a public constructor taking exactly one
// (reference to) this class.
func (c *Class) HasPublicCopyCtor() bool {
	for _, ctor := range c.Constructors() {
		if ctor.Access != AccessPublic || len(ctor.RequiredArgs()) != 1 || len(ctor.Args) != len(ctor.RequiredArgs()) {
			continue
		}
		if leafClassOf(ctor.Args[0].Type) == c {
			return true
		}
	}
	return false
}

// HasPublicAssign reports a public copy-assignment operator.
func (c *Class) HasPublicAssign() bool {
	for _, op := range c.MemberOperators() {
		if op.Access == AccessPublic && op.Name == "operator=" {
			return true
		}
	}
	return false
}

// leafClassOf peels references and cv-qualifiers only; it does not cross
// pointers, so `const C &` and `C` resolve to C but `C *` does not.
func leafClassOf(t Type) *Class {
	for {
		switch v := t.(type) {
		case *ReferenceType:
			t = v.Referent
		case *CvQualifiedType:
			t = v.Base
		case *DeclaratedType:
			cls, _ := v.Decl.(*Class)
			return cls
		default:
			return nil
		}
	}
}

// ClassDecl is a forward declaration: the name is known but no members
// are visible.
type ClassDecl struct {
	Name   string
	File   string
	parent Decl
}

func (c *ClassDecl) DeclName() string { return c.Name }
func (c *ClassDecl) DeclParent() Decl { return c.parent }
func (c *ClassDecl) setParent(p Decl) { c.parent = p }

type EnumValue struct {
	Name  string
	Value int64
}

type Enum struct {
	Name   string
	File   string
	Values []EnumValue
	parent Decl
}

func (e *Enum) DeclName() string { return e.Name }
func (e *Enum) DeclParent() Decl { return e.parent }
func (e *Enum) setParent(p Decl) { e.parent = p }

type Typedef struct {
	Name   string
	File   string
	Type   Type
	parent Decl
}

func (t *Typedef) DeclName() string { return t.Name }
func (t *Typedef) DeclParent() Decl { return t.parent }
func (t *Typedef) setParent(p Decl) { t.parent = p }

// Argument is a formal parameter. A non-empty Default marks it optional.
type Argument struct {
	Name    string
	Type    Type
	Default string
}

// Function covers every callable kind; Kind tells them apart.
type Function struct {
	Name        string
	File        string
	Kind        DeclKind
	Returns     Type
	Args        []Argument
	Const       bool
	Static      bool
	Access      Access
	Virtuality  Virtuality
	HasEllipsis bool
	parent      Decl
}

func (f *Function) DeclName() string { return f.Name }
func (f *Function) DeclParent() Decl { return f.parent }
func (f *Function) setParent(p Decl) { f.parent = p }

func (f *Function) RequiredArgs() []Argument {
	var out []Argument
	for _, a := range f.Args {
		if a.Default == "" {
			out = append(out, a)
		}
	}
	return out
}

func (f *Function) OptionalArgCount() int {
	return len(f.Args) - len(f.RequiredArgs())
}

func (f *Function) isPublicConcrete() bool {
	return f.Access == AccessPublic && f.Virtuality != VirtualityPure
}

// declString renders the callable the way source-reference comments show
// it: qualified name plus parameter type list.
func (f *Function) declString() string {
	types := make([]string, len(f.Args))
	for i, a := range f.Args {
		types[i] = a.Type.String()
	}
	return fmt.Sprintf("%s(%s)", FullName(f), strings.Join(types, ", "))
}

// Type is one layer of a C++ type expression. String renders the C++
// spelling, which the lowering uses for cast strings and for the C
// spelling of fundamental leaves.
type Type interface {
	String() string
}

type FundamentalType struct {
	Name string
}

func (t *FundamentalType) String() string { return t.Name }

type PointerType struct {
	Pointee Type
}

func (t *PointerType) String() string {
	if ft, ok := t.Pointee.(*FunctionType); ok {
		return fmt.Sprintf("%s (*)(%s)", ft.Returns, ft.paramString())
	}
	return t.Pointee.String() + " *"
}

type ReferenceType struct {
	Referent Type
}

func (t *ReferenceType) String() string { return t.Referent.String() + " &" }

type ArrayType struct {
	Element Type
	Size    int
}

func (t *ArrayType) String() string {
	if t.Size <= 0 {
		return t.Element.String() + "[]"
	}
	return fmt.Sprintf("%s[%d]", t.Element, t.Size)
}

type CvQualifiedType struct {
	Base     Type
	Const    bool
	Volatile bool
}

func (t *CvQualifiedType) String() string {
	switch t.Base.(type) {
	case *PointerType, *ArrayType:
		s := t.Base.String()
		if t.Const {
			s += " const"
		}
		if t.Volatile {
			s += " volatile"
		}
		return s
	}
	s := ""
	if t.Const {
		s += "const "
	}
	if t.Volatile {
		s += "volatile "
	}
	return s + t.Base.String()
}

// DeclaratedType is a leaf naming a user-defined declaration: a class, a
// forward class declaration, an enum or a typedef.
type DeclaratedType struct {
	Decl Decl
}

func (t *DeclaratedType) String() string { return FullName(t.Decl) }

type FunctionType struct {
	Returns Type
	Params  []Type
}

func (t *FunctionType) paramString() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("%s (%s)", t.Returns, t.paramString())
}

type MemberFunctionType struct {
	Class   Decl
	Returns Type
	Params  []Type
}

func (t *MemberFunctionType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s (%s::*)(%s)", t.Returns, FullName(t.Class), strings.Join(parts, ", "))
}

type EllipsisType struct{}

func (t *EllipsisType) String() string { return "..." }

// UnknownType stands in for anything the parser could not resolve; the
// lowering reports it unsupported.
type UnknownType struct {
	Spelling string
}

func (t *UnknownType) String() string {
	if t.Spelling == "" {
		return "<unknown>"
	}
	return t.Spelling
}

func isVoidType(t Type) bool {
	f, ok := t.(*FundamentalType)
	return ok && f.Name == "void"
}

func isBoolType(t Type) bool {
	f, ok := t.(*FundamentalType)
	return ok && f.Name == "bool"
}
