package cpp2c

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// GccXMLParser shells out to a GCC-XML compatible binary (gccxml or
// castxml in gccxml-emulation mode) and decodes its XML declaration
// dump into the model the engine consumes.
type GccXMLParser struct {
	Binary       string
	IncludePaths []string
	Compiler     string
}

func NewGccXMLParser(binary string, includePaths []string, compiler string) *GccXMLParser {
	if binary == "" {
		binary = "castxml"
	}
	return &GccXMLParser{Binary: binary, IncludePaths: includePaths, Compiler: compiler}
}

func (g *GccXMLParser) Parse(headerPath string) (*Namespace, error) {
	tmp, err := os.CreateTemp("", "cpp2c-*.xml")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	var args []string
	if strings.Contains(strings.ToLower(filepath.Base(g.Binary)), "castxml") {
		args = append(args, "--castxml-gccxml", "-o", tmpPath, headerPath)
	} else {
		args = append(args, headerPath, "-fxml="+tmpPath)
		if g.Compiler != "" {
			args = append(args, "--gccxml-compiler", g.Compiler)
		}
	}
	for _, inc := range g.IncludePaths {
		args = append(args, "-I"+inc)
	}

	cmd := exec.Command(g.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("parsing %s with %s: %v\n%s", headerPath, g.Binary, err, out)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeGccXML(f)
}

// Raw XML shapes of a GCC-XML dump: a flat element stream cross-linked
// by id attributes.

type xmlDump struct {
	XMLName           xml.Name          `xml:"GCC_XML"`
	Namespaces        []xmlNamespace    `xml:"Namespace"`
	Classes           []xmlClass        `xml:"Class"`
	Structs           []xmlClass        `xml:"Struct"`
	Enums             []xmlEnum         `xml:"Enumeration"`
	Typedefs          []xmlTypedef      `xml:"Typedef"`
	Functions         []xmlFunction     `xml:"Function"`
	OperatorFunctions []xmlFunction     `xml:"OperatorFunction"`
	Methods           []xmlFunction     `xml:"Method"`
	OperatorMethods   []xmlFunction     `xml:"OperatorMethod"`
	Constructors      []xmlFunction     `xml:"Constructor"`
	Destructors       []xmlFunction     `xml:"Destructor"`
	Fundamentals      []xmlNamedType    `xml:"FundamentalType"`
	Pointers          []xmlDerivedType  `xml:"PointerType"`
	References        []xmlDerivedType  `xml:"ReferenceType"`
	Arrays            []xmlArrayType    `xml:"ArrayType"`
	CvQualified       []xmlCvType       `xml:"CvQualifiedType"`
	FunctionTypes     []xmlFunctionType `xml:"FunctionType"`
	MethodTypes       []xmlFunctionType `xml:"MethodType"`
	Files             []xmlFile         `xml:"File"`
}

type xmlNamespace struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Context string `xml:"context,attr"`
}

type xmlClass struct {
	ID         string `xml:"id,attr"`
	Name       string `xml:"name,attr"`
	Context    string `xml:"context,attr"`
	File       string `xml:"file,attr"`
	Incomplete string `xml:"incomplete,attr"`
}

type xmlEnum struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Context string `xml:"context,attr"`
	File    string `xml:"file,attr"`
	Values  []struct {
		Name string `xml:"name,attr"`
		Init string `xml:"init,attr"`
	} `xml:"EnumValue"`
}

type xmlTypedef struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Context string `xml:"context,attr"`
	File    string `xml:"file,attr"`
}

type xmlArgument struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Default string `xml:"default,attr"`
}

type xmlFunction struct {
	ID          string        `xml:"id,attr"`
	Name        string        `xml:"name,attr"`
	Returns     string        `xml:"returns,attr"`
	Context     string        `xml:"context,attr"`
	File        string        `xml:"file,attr"`
	Access      string        `xml:"access,attr"`
	Static      string        `xml:"static,attr"`
	Const       string        `xml:"const,attr"`
	Virtual     string        `xml:"virtual,attr"`
	PureVirtual string        `xml:"pure_virtual,attr"`
	Args        []xmlArgument `xml:"Argument"`
	Ellipsis    *struct{}     `xml:"Ellipsis"`
}

type xmlNamedType struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type xmlDerivedType struct {
	ID   string `xml:"id,attr"`
	Type string `xml:"type,attr"`
}

type xmlArrayType struct {
	ID   string `xml:"id,attr"`
	Type string `xml:"type,attr"`
	Max  string `xml:"max,attr"`
}

type xmlCvType struct {
	ID       string `xml:"id,attr"`
	Type     string `xml:"type,attr"`
	Const    string `xml:"const,attr"`
	Volatile string `xml:"volatile,attr"`
}

type xmlFunctionType struct {
	ID      string        `xml:"id,attr"`
	Returns string        `xml:"returns,attr"`
	Args    []xmlArgument `xml:"Argument"`
}

type xmlFile struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type xmlBuilder struct {
	dump xmlDump

	files        map[string]string
	namespaces   map[string]*Namespace
	decls        map[string]Decl
	fundamentals map[string]xmlNamedType
	pointers     map[string]xmlDerivedType
	references   map[string]xmlDerivedType
	arrays       map[string]xmlArrayType
	cv           map[string]xmlCvType
	funcTypes    map[string]xmlFunctionType
	methodTypes  map[string]xmlFunctionType

	types map[string]Type
	root  *Namespace
}

func decodeGccXML(r io.Reader) (*Namespace, error) {
	b := &xmlBuilder{
		files:        make(map[string]string),
		namespaces:   make(map[string]*Namespace),
		decls:        make(map[string]Decl),
		fundamentals: make(map[string]xmlNamedType),
		pointers:     make(map[string]xmlDerivedType),
		references:   make(map[string]xmlDerivedType),
		arrays:       make(map[string]xmlArrayType),
		cv:           make(map[string]xmlCvType),
		funcTypes:    make(map[string]xmlFunctionType),
		methodTypes:  make(map[string]xmlFunctionType),
		types:        make(map[string]Type),
	}
	if err := xml.NewDecoder(r).Decode(&b.dump); err != nil {
		return nil, fmt.Errorf("decoding declaration dump: %w", err)
	}
	return b.build()
}

func (b *xmlBuilder) build() (*Namespace, error) {
	for _, f := range b.dump.Files {
		b.files[f.ID] = f.Name
	}
	for _, t := range b.dump.Fundamentals {
		b.fundamentals[t.ID] = t
	}
	for _, t := range b.dump.Pointers {
		b.pointers[t.ID] = t
	}
	for _, t := range b.dump.References {
		b.references[t.ID] = t
	}
	for _, t := range b.dump.Arrays {
		b.arrays[t.ID] = t
	}
	for _, t := range b.dump.CvQualified {
		b.cv[t.ID] = t
	}
	for _, t := range b.dump.FunctionTypes {
		b.funcTypes[t.ID] = t
	}
	for _, t := range b.dump.MethodTypes {
		b.methodTypes[t.ID] = t
	}

	// Namespace shells first; everything else attaches underneath.
	for _, ns := range b.dump.Namespaces {
		name := ns.Name
		if name == "::" {
			name = ""
		}
		n := &Namespace{Name: name}
		b.namespaces[ns.ID] = n
		if name == "" {
			b.root = n
		}
	}
	if b.root == nil {
		return nil, fmt.Errorf("declaration dump has no global namespace")
	}
	for _, ns := range b.dump.Namespaces {
		n := b.namespaces[ns.ID]
		if n == b.root {
			continue
		}
		parent, ok := b.namespaces[ns.Context]
		if !ok {
			parent = b.root
		}
		parent.Add(n)
	}

	// Class, enum and typedef shells so types can cross-link before
	// member lowering fills them in.
	classes := append(append([]xmlClass{}, b.dump.Classes...), b.dump.Structs...)
	for _, xc := range classes {
		parent, ok := b.namespaces[xc.Context]
		if !ok {
			glog.V(1).Infof("skipping nested class %s", xc.Name)
			continue
		}
		if xc.Incomplete == "1" {
			d := &ClassDecl{Name: xc.Name, File: b.files[xc.File]}
			parent.Add(d)
			b.decls[xc.ID] = d
			continue
		}
		cls := &Class{Name: xc.Name, File: b.files[xc.File]}
		parent.Add(cls)
		b.decls[xc.ID] = cls
	}
	for _, xe := range b.dump.Enums {
		parent, ok := b.namespaces[xe.Context]
		if !ok {
			glog.V(1).Infof("skipping nested enum %s", xe.Name)
			continue
		}
		e := &Enum{Name: xe.Name, File: b.files[xe.File]}
		for _, v := range xe.Values {
			val, _ := strconv.ParseInt(v.Init, 10, 64)
			e.Values = append(e.Values, EnumValue{Name: v.Name, Value: val})
		}
		parent.Add(e)
		b.decls[xe.ID] = e
	}
	for _, xt := range b.dump.Typedefs {
		parent, ok := b.namespaces[xt.Context]
		if !ok {
			glog.V(1).Infof("skipping nested typedef %s", xt.Name)
			continue
		}
		td := &Typedef{Name: xt.Name, File: b.files[xt.File]}
		parent.Add(td)
		b.decls[xt.ID] = td
	}
	for _, xt := range b.dump.Typedefs {
		if td, ok := b.decls[xt.ID].(*Typedef); ok {
			td.Type = b.resolveType(xt.Type)
		}
	}

	b.addCallables(b.dump.Functions, FreeFunc)
	b.addCallables(b.dump.OperatorFunctions, FreeOp)
	b.addCallables(b.dump.Methods, MemberFunc)
	b.addCallables(b.dump.OperatorMethods, MemberOp)
	b.addCallables(b.dump.Constructors, Ctor)
	b.addCallables(b.dump.Destructors, Dtor)
	return b.root, nil
}

func (b *xmlBuilder) addCallables(raw []xmlFunction, kind DeclKind) {
	for _, xf := range raw {
		name := xf.Name
		if (kind == FreeOp || kind == MemberOp) && !strings.HasPrefix(name, "operator") {
			name = "operator" + name
		}
		f := &Function{
			Name:        name,
			File:        b.files[xf.File],
			Kind:        kind,
			Const:       xf.Const == "1",
			Static:      xf.Static == "1",
			Access:      parseAccess(xf.Access),
			HasEllipsis: xf.Ellipsis != nil,
		}
		if xf.PureVirtual == "1" {
			f.Virtuality = VirtualityPure
		} else if xf.Virtual == "1" {
			f.Virtuality = VirtualityVirtual
		}
		if xf.Returns != "" {
			f.Returns = b.resolveType(xf.Returns)
		} else {
			f.Returns = &FundamentalType{Name: "void"}
		}
		for _, a := range xf.Args {
			f.Args = append(f.Args, Argument{Name: a.Name, Type: b.resolveType(a.Type), Default: a.Default})
		}

		switch parent := b.lookupContext(xf.Context).(type) {
		case *Namespace:
			parent.Add(f)
		case *Class:
			parent.Add(f)
		default:
			glog.V(1).Infof("skipping %s %s with unplaceable context", kind, name)
		}
	}
}

func (b *xmlBuilder) lookupContext(id string) Decl {
	if ns, ok := b.namespaces[id]; ok {
		return ns
	}
	if d, ok := b.decls[id]; ok {
		return d
	}
	return nil
}

func (b *xmlBuilder) resolveType(id string) Type {
	if t, ok := b.types[id]; ok {
		return t
	}
	// Break reference cycles; the memo entry is replaced below.
	b.types[id] = &UnknownType{Spelling: id}
	t := b.buildType(id)
	b.types[id] = t
	return t
}

func (b *xmlBuilder) buildType(id string) Type {
	if ft, ok := b.fundamentals[id]; ok {
		return &FundamentalType{Name: ft.Name}
	}
	if pt, ok := b.pointers[id]; ok {
		return &PointerType{Pointee: b.resolveType(pt.Type)}
	}
	if rt, ok := b.references[id]; ok {
		return &ReferenceType{Referent: b.resolveType(rt.Type)}
	}
	if at, ok := b.arrays[id]; ok {
		size := 0
		if max, err := strconv.Atoi(at.Max); err == nil {
			size = max + 1
		}
		return &ArrayType{Element: b.resolveType(at.Type), Size: size}
	}
	if cv, ok := b.cv[id]; ok {
		return &CvQualifiedType{
			Base:     b.resolveType(cv.Type),
			Const:    cv.Const == "1",
			Volatile: cv.Volatile == "1",
		}
	}
	if ft, ok := b.funcTypes[id]; ok {
		out := &FunctionType{Returns: b.resolveType(ft.Returns)}
		for _, a := range ft.Args {
			out.Params = append(out.Params, b.resolveType(a.Type))
		}
		return out
	}
	if mt, ok := b.methodTypes[id]; ok {
		out := &MemberFunctionType{Returns: b.resolveType(mt.Returns)}
		for _, a := range mt.Args {
			out.Params = append(out.Params, b.resolveType(a.Type))
		}
		return out
	}
	if d, ok := b.decls[id]; ok {
		return &DeclaratedType{Decl: d}
	}
	return &UnknownType{Spelling: id}
}

func parseAccess(s string) Access {
	switch s {
	case "protected":
		return AccessProtected
	case "private":
		return AccessPrivate
	default:
		return AccessPublic
	}
}
