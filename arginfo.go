package cpp2c

import (
	"fmt"
	"strings"
)

// capability is the tri-state answer to "can this class be copied /
// default-constructed-and-assigned": unknown when only a forward
// declaration is visible, in which case the --copy / --assign options
// may grant the assumption.
type capability int

const (
	capUnknown capability = iota
	capYes
	capNo
)

func capFrom(b bool) capability {
	if b {
		return capYes
	}
	return capNo
}

func (c capability) granted(assume bool) bool {
	return c == capYes || (c == capUnknown && assume)
}

// ArgInfo is the lowered C description of one C++ type: the C type
// string, the flags the emitter dispatches on, and an optional cast
// forcing the conversion back to the C++ spelling inside the thunk.
type ArgInfo struct {
	Type Type
	Name string

	CType string
	Cast  string

	ClassName        string // qualified C++ name of a class leaf
	CanCopy          capability
	CanDefaultAssign capability

	IsConst      bool
	IsRef        bool
	IsClass      bool
	IsPtr        bool
	IsEnum       bool
	IsTypedef    bool
	IsFuncPtr    bool
	IsCBool      bool
	IsCDecl      bool
	IsRedirected bool

	FuncPtr *FuncPtrInfo
}

// newArgInfo peels a C++ type one layer at a time until a fundamental,
// class or enum leaf is reached, then renders the C surface spelling.
func newArgInfo(t Type, ctx *Context, name string) (*ArgInfo, error) {
	a := &ArgInfo{Type: t, Name: name}

	// MSVC emits an internal auxiliary-container type for some template
	// instantiations; there is nothing sensible to lower it to.
	if strings.Contains(t.String(), "std::_Aux_cont") {
		return nil, unsupportedf("auxiliary container type", "%s", t)
	}

	var (
		ptrs        []bool // const flag per pointer layer, innermost last
		cur         = t
		cls         *Class
		clsDecl     *ClassDecl
		enumDecl    *Enum
		typedefName string
		typedefC    string
	)

walk:
	for {
		switch v := cur.(type) {
		case *CvQualifiedType:
			if v.Const {
				a.IsConst = true
			}
			// volatile carries no C-surface meaning here; stripped.
			cur = v.Base
		case *PointerType:
			if ft, ok := v.Pointee.(*FunctionType); ok {
				fp, err := newFuncPtrInfo(ft, name, ctx)
				if err != nil {
					return nil, err
				}
				a.IsFuncPtr = true
				a.FuncPtr = fp
				break walk
			}
			if _, ok := v.Pointee.(*MemberFunctionType); ok {
				return nil, unsupportedf("member function pointer", "%s", t)
			}
			ptrs = append(ptrs, a.IsConst)
			a.IsConst = false
			cur = v.Pointee
		case *ArrayType:
			ptrs = append(ptrs, a.IsConst)
			a.IsConst = false
			cur = v.Element
		case *ReferenceType:
			// Only the outermost reference counts; further ones flatten.
			a.IsRef = true
			cur = v.Referent
		case *EllipsisType:
			return nil, unsupportedf("ellipsis argument", "%s", t)
		case *UnknownType:
			return nil, unsupportedf("unknown type", "%s", t)
		case *DeclaratedType:
			switch d := v.Decl.(type) {
			case *Typedef:
				a.IsTypedef = true
				typedefName, typedefC = ctx.TypedefData(d)
				cur = d.Type
			case *Class:
				a.IsClass = true
				cls = d
				break walk
			case *ClassDecl:
				a.IsClass = true
				clsDecl = d
				if resolved := ctx.Root.ClassByName(FullName(d)); resolved != nil {
					cls = resolved
				}
				break walk
			case *Enum:
				a.IsEnum = true
				enumDecl = d
				break walk
			default:
				return nil, unsupportedf("unknown declaration", "%s", FullName(v.Decl))
			}
		case *FundamentalType:
			break walk
		default:
			return nil, unsupportedf("unknown type layer", "%s", cur)
		}
	}

	a.IsCBool = isBoolType(cur) && !ctx.C99
	a.IsCDecl = !(a.IsClass || a.IsRef || a.IsCBool)
	a.IsRedirected = a.IsClass || a.IsRef

	if a.IsCDecl {
		a.CType = stripGlobalNS(t.String())
		switch {
		case a.IsTypedef:
			stripped := stripGlobalNS(typedefName)
			if typedefC != stripped {
				// The alias lives in a namespace; the thunk needs the
				// original spelling to force the conversion.
				a.Cast = a.CType
			}
			a.CType = strings.ReplaceAll(a.CType, typedefName, typedefC)
			a.CType = strings.ReplaceAll(a.CType, stripped, typedefC)
		case a.IsEnum:
			a.Cast = a.CType
			_, enumC := ctx.EnumData(enumDecl)
			if !strings.Contains(enumC, "enum ") {
				enumC = "enum " + enumC
			}
			a.CType = strings.ReplaceAll(a.CType, stripGlobalNS(FullName(enumDecl)), enumC)
		}
	} else {
		var base string
		if a.IsClass {
			if cls != nil {
				a.CanCopy = capFrom(cls.HasPublicCopyCtor())
				a.CanDefaultAssign = capFrom(cls.HasPublicAssign() && cls.PublicDefaultCtor() != nil)
				a.ClassName, base = ctx.ClassData(cls)
			} else {
				a.CanCopy = capUnknown
				a.CanDefaultAssign = capUnknown
				a.ClassName, base = ctx.ClassData(clsDecl)
			}
			if len(ptrs) > 0 {
				// The handle already carries one indirection; consume the
				// innermost pointer layer, keeping its constness.
				if ptrs[len(ptrs)-1] {
					base = "const " + base
				}
				ptrs = ptrs[:len(ptrs)-1]
				a.IsRedirected = false
			}
		} else {
			base = stripGlobalNS(cur.String())
			if a.IsRef {
				// References to non-class types lower to a const pointer.
				ptrs = append(ptrs, true)
			}
		}
		var sb strings.Builder
		for i := len(ptrs) - 1; i >= 0; i-- {
			if ptrs[i] {
				sb.WriteString("* const")
			} else {
				sb.WriteString("*")
			}
		}
		constPrefix := ""
		if a.IsConst {
			constPrefix = "const "
		}
		a.CType = constPrefix + base + sb.String()
		if a.IsClass {
			_, ptrName := ctx.ClassData(leafDecl(cls, clsDecl))
			a.Cast = strings.ReplaceAll(a.CType, ptrName, a.ClassName+"*")
		}
		if a.IsCBool {
			a.Cast = a.CType
			a.CType = strings.ReplaceAll(a.CType, "bool", cBoolTypeName)
		}
	}

	if a.IsFuncPtr && !a.IsTypedef {
		a.CType = a.FuncPtr.TypeStr
	}
	if len(ptrs) > 0 {
		a.IsPtr = true
	}
	return a, nil
}

func leafDecl(cls *Class, clsDecl *ClassDecl) Decl {
	if cls != nil {
		return cls
	}
	return clsDecl
}

func (a *ArgInfo) IsVoid() bool { return isVoidType(a.Type) }

// TypeNameString renders the "type name" pair for a prototype. Function
// pointers embed the name inside the declarator.
func (a *ArgInfo) TypeNameString() string {
	if a.IsFuncPtr && !a.IsTypedef {
		return strings.ReplaceAll(a.CType, "(*)", "(*"+a.Name+")")
	}
	return fmt.Sprintf("%s %s", a.CType, a.Name)
}

// FuncPtrInfo lowers the pointee of a function pointer: each parameter
// and the return type recursively, joined into a C declarator.
type FuncPtrInfo struct {
	Args    []*ArgInfo
	Ret     *ArgInfo
	Name    string
	TypeStr string
}

func newFuncPtrInfo(ft *FunctionType, name string, ctx *Context) (*FuncPtrInfo, error) {
	fp := &FuncPtrInfo{Name: name}
	for _, p := range ft.Params {
		info, err := newArgInfo(p, ctx, "")
		if err != nil {
			return nil, err
		}
		fp.Args = append(fp.Args, info)
	}
	ret, err := newArgInfo(ft.Returns, ctx, "")
	if err != nil {
		return nil, err
	}
	fp.Ret = ret

	parts := make([]string, len(fp.Args))
	for i, arg := range fp.Args {
		parts[i] = arg.CType
	}
	fp.TypeStr = fmt.Sprintf("%s (*%s)(%s)", ret.CType, name, strings.Join(parts, ", "))
	return fp, nil
}
