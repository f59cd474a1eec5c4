package cpp2c

import (
	"strconv"
	"strings"
)

type pendingKind int

const (
	pendingClass pendingKind = iota
	pendingTypedef
	pendingEnum
)

// stringRecord captures the std::string / std::wstring special case: the
// handle is named after the typedef rather than the basic_string
// instantiation, and substitutions rewrite later references accordingly.
type stringRecord struct {
	wide            bool
	name            string // "string" or "wstring"
	ctorName        string // the instantiation's constructor name
	classCName      string
	typedefCName    string
	fullClassName   string
	fullTypedefName string
}

// Context is the shared state of one translation run: name mappings,
// the uniqueness ledger, and the worklists of declarations discovered
// during lowering but not yet emitted.
type Context struct {
	Root *Namespace
	C99  bool

	classPtrs  map[string]string // qualified C++ name -> C handle name
	typedefs   map[string]string // qualified C++ name -> C name
	enums      map[string]string // qualified C++ name -> C name
	tokenFreqs map[string]int

	pendingClasses  []*Class
	pendingTypedefs []*Typedef
	pendingEnums    []*Enum

	emittedEnums    map[string]bool
	emittedTypedefs map[string]bool

	stdString  *stringRecord
	stdWString *stringRecord

	operatorTokens []string
}

func NewContext(root *Namespace, c99 bool) *Context {
	return &Context{
		Root:            root,
		C99:             c99,
		classPtrs:       make(map[string]string),
		typedefs:        make(map[string]string),
		enums:           make(map[string]string),
		tokenFreqs:      make(map[string]int),
		emittedEnums:    make(map[string]bool),
		emittedTypedefs: make(map[string]bool),
		operatorTokens:  operatorTokensByLength(),
	}
}

// UniqueName implements the uniqueness ledger: the first request for a
// stem returns it unchanged, the n-th request returns the stem with
// suffix n-1 ("f", "f1", "f2", ...). Emission order therefore decides
// which declaration keeps the plain name.
func (c *Context) UniqueName(stem string) string {
	n := c.tokenFreqs[stem]
	c.tokenFreqs[stem] = n + 1
	if n == 0 {
		return stem
	}
	return stem + strconv.Itoa(n)
}

// UniqueNameForced is UniqueName with the suffix applied even on first
// use; enumerator constants from different namespaces land in C's flat
// namespace and always carry one.
func (c *Context) UniqueNameForced(stem string) string {
	n := c.tokenFreqs[stem]
	c.tokenFreqs[stem] = n + 1
	return stem + strconv.Itoa(n+1)
}

// subSeq rewrites C++ qualified names: the basic_string instantiation
// spelling becomes the typedef spelling.
func (c *Context) subSeq() []tokenSub {
	var subs []tokenSub
	if r := c.stdWString; r != nil {
		subs = append(subs, tokenSub{r.fullClassName, r.fullTypedefName})
	}
	if r := c.stdString; r != nil {
		subs = append(subs, tokenSub{r.fullClassName, r.fullTypedefName})
	}
	return subs
}

// cSubSeq rewrites generated C names the same way, plus the constructor
// name ("basic_string" becomes "string" / "wstring").
func (c *Context) cSubSeq() []tokenSub {
	var subs []tokenSub
	if r := c.stdWString; r != nil {
		subs = append(subs,
			tokenSub{r.classCName, r.typedefCName},
			tokenSub{r.ctorName, r.name})
	}
	if r := c.stdString; r != nil {
		subs = append(subs,
			tokenSub{r.classCName, r.typedefCName},
			tokenSub{r.ctorName, r.name})
	}
	return subs
}

// FullName is the declaration's qualified C++ name under the context's
// substitutions; it is what thunk bodies spell.
func (c *Context) FullName(d Decl) string {
	return applySubs(FullName(d), c.subSeq())
}

// CName is the declaration's generated C identifier under the context's
// substitutions.
func (c *Context) CName(d Decl) string {
	return applySubs(mangleCToken(FullName(d)), c.cSubSeq())
}

func (c *Context) enumCName(e *Enum) string {
	name := mangleCToken(FullName(e))
	// A global-scope enum would redeclare its own C++ tag.
	if name == e.Name {
		name += "_C"
	}
	return name
}

// AddClass registers a class (or forward declaration) and returns its C
// struct tag and handle name.
func (c *Context) AddClass(d Decl, altPtrName string) (string, string) {
	cName := c.CName(d)
	ptrName := altPtrName
	if ptrName == "" {
		ptrName = classPtrName(cName)
	}
	c.classPtrs[c.FullName(d)] = ptrName
	return cName, ptrName
}

func (c *Context) AddTypedef(td *Typedef) {
	c.typedefs[FullName(td)] = mangleCToken(FullName(td))
}

func (c *Context) AddEnum(e *Enum) {
	c.enums[FullName(e)] = c.enumCName(e)
}

// ClassData returns the qualified name and handle of a class leaf,
// registering it and queueing its body on first reference. A forward
// declaration with no visible definition still gets a handle; only its
// body is unavailable.
func (c *Context) ClassData(d Decl) (string, string) {
	name := c.FullName(d)
	if ptr, ok := c.classPtrs[name]; ok {
		return name, ptr
	}
	c.AddClass(d, "")
	switch v := d.(type) {
	case *Class:
		c.pendingClasses = append(c.pendingClasses, v)
	case *ClassDecl:
		if cls := c.Root.ClassByName(FullName(d)); cls != nil {
			c.pendingClasses = append(c.pendingClasses, cls)
		}
	}
	return name, c.classPtrs[name]
}

// TypedefData returns the qualified name and C name of a typedef leaf,
// queueing it for emission on first reference.
func (c *Context) TypedefData(td *Typedef) (string, string) {
	name := FullName(td)
	if cName, ok := c.typedefs[name]; ok {
		return name, cName
	}
	c.AddTypedef(td)
	c.pendingTypedefs = append(c.pendingTypedefs, td)
	return name, c.typedefs[name]
}

// EnumData returns the qualified name and C name of an enum leaf,
// queueing it for emission on first reference.
func (c *Context) EnumData(e *Enum) (string, string) {
	name := FullName(e)
	if cName, ok := c.enums[name]; ok {
		return name, cName
	}
	c.AddEnum(e)
	c.pendingEnums = append(c.pendingEnums, e)
	return name, c.enums[name]
}

func (c *Context) enumEmitted(e *Enum) bool { return c.emittedEnums[FullName(e)] }
func (c *Context) markEnumEmitted(e *Enum)  { c.emittedEnums[FullName(e)] = true }

func (c *Context) typedefEmitted(td *Typedef) bool { return c.emittedTypedefs[FullName(td)] }
func (c *Context) markTypedefEmitted(td *Typedef)  { c.emittedTypedefs[FullName(td)] = true }

// AddStdString registers the std::string / std::wstring typedef and its
// underlying class, naming the handle after the typedef.
func (c *Context) AddStdString(td *Typedef) (bool, *Class, string, error) {
	dt, ok := td.Type.(*DeclaratedType)
	if !ok {
		return false, nil, "", unsupportedf("string typedef", "%s does not name a class", FullName(td))
	}
	var cls *Class
	switch v := dt.Decl.(type) {
	case *Class:
		cls = v
	case *ClassDecl:
		cls = c.Root.ClassByName(FullName(v))
	}
	if cls == nil {
		return false, nil, "", unsupportedf("string typedef", "no concrete class for %s", FullName(td))
	}
	rec := &stringRecord{
		wide:            strings.Contains(td.Name, "wstring"),
		name:            td.Name,
		ctorName:        cls.Name,
		classCName:      mangleCToken(FullName(cls)),
		typedefCName:    mangleCToken(FullName(td)),
		fullClassName:   FullName(cls),
		fullTypedefName: FullName(td),
	}
	if ctor := cls.PublicDefaultCtor(); ctor != nil {
		rec.ctorName = ctor.Name
	}
	if rec.wide {
		c.stdWString = rec
	} else {
		c.stdString = rec
	}
	c.AddTypedef(td)
	return rec.wide, cls, classPtrName(rec.typedefCName), nil
}

func (c *Context) PendingEmpty() bool {
	return len(c.pendingClasses) == 0 && len(c.pendingTypedefs) == 0 && len(c.pendingEnums) == 0
}

// PopPending drains the worklists one element at a time, enums before
// typedefs before classes: enums and typedefs are referenced by class
// signatures, and class bodies may queue new enums and typedefs while
// they are emitted.
func (c *Context) PopPending() (pendingKind, Decl) {
	if len(c.pendingEnums) > 0 {
		e := c.pendingEnums[0]
		c.pendingEnums = c.pendingEnums[1:]
		return pendingEnum, e
	}
	if len(c.pendingTypedefs) > 0 {
		td := c.pendingTypedefs[0]
		c.pendingTypedefs = c.pendingTypedefs[1:]
		return pendingTypedef, td
	}
	cls := c.pendingClasses[0]
	c.pendingClasses = c.pendingClasses[1:]
	return pendingClass, cls
}
