package cpp2c

import (
	"fmt"
	"strconv"
)

// FuncInfo is the lowered form of one callable: its C name stem, the
// lowered return and parameter descriptors, and the implicit `this`
// handling for members.
type FuncInfo struct {
	Func     *Function
	Kind     DeclKind
	FullName string
	CName    string

	Args         []*ArgInfo
	Ret          *ArgInfo
	OptionalArgs int

	ClassName   string
	ClassArg    string // "PTR_T class_this", possibly const-qualified
	Redirection string // "((const T*) class_this)->"
	IsStatic    bool

	C99      bool
	ErrorArg bool
}

// newFuncInfo classifies and lowers a callable. With minArgsOnly set,
// optional parameters are dropped entirely and a single minimum-arity
// thunk is described; otherwise one thunk per supported arity is emitted
// by the caller.
func newFuncInfo(f *Function, ctx *Context, errorArg, minArgsOnly bool) (*FuncInfo, error) {
	if f.HasEllipsis {
		return nil, unsupportedf("ellipsis argument", "%s", f.declString())
	}

	fi := &FuncInfo{
		Func:     f,
		Kind:     f.Kind,
		FullName: ctx.FullName(f),
		C99:      ctx.C99,
		ErrorArg: errorArg,
	}

	switch f.Kind {
	case Ctor:
		// Constructors surface under the class's own name; the handle
		// type already says what is being constructed.
		fi.CName = ctx.CName(f.DeclParent())
	case MemberOp, FreeOp:
		// The operator token is translated before the qualification is
		// mangled; mangling first would eat `<`, `>` and spaces and
		// leave nothing for the word table to match.
		opWord := mangleCToken(substituteOperatorTokens(f.Name, ctx.operatorTokens))
		if qual := ctx.CName(f.DeclParent()); qual != "" {
			fi.CName = qual + "_" + opWord
		} else {
			fi.CName = opWord
		}
	default:
		fi.CName = ctx.CName(f)
	}

	args := f.Args
	if minArgsOnly {
		args = f.RequiredArgs()
	} else {
		fi.OptionalArgs = f.OptionalArgCount()
	}
	for i, arg := range args {
		argName := arg.Name
		if argName == "" {
			argName = "arg" + strconv.Itoa(i)
		}
		info, err := newArgInfo(arg.Type, ctx, argName)
		if err != nil {
			return nil, err
		}
		fi.Args = append(fi.Args, info)
	}

	if f.Kind == MemberFunc || f.Kind == MemberOp || f.Kind == Dtor {
		className, ptrName := ctx.ClassData(f.DeclParent())
		fi.ClassName = className
		fi.ClassArg = fmt.Sprintf("%s %s", ptrName, thisVarName)

		if f.Kind == MemberFunc || f.Kind == MemberOp {
			fi.IsStatic = f.Static
			if fi.IsStatic {
				fi.CName += "_static"
			}
			constRedirection := ""
			if f.Const {
				fi.ClassArg = "const " + fi.ClassArg
				fi.CName += "_const"
				constRedirection = "const "
			}
			if !fi.IsStatic {
				fi.Redirection = fmt.Sprintf("((%s%s*) %s)->", constRedirection, className, thisVarName)
			}
		}
	}

	var (
		ret *ArgInfo
		err error
	)
	switch {
	case f.Kind == Ctor:
		ret, err = newArgInfo(&DeclaratedType{Decl: f.DeclParent()}, ctx, "")
	case f.Kind == Dtor || f.Returns == nil:
		ret, err = newArgInfo(&FundamentalType{Name: "void"}, ctx, "")
	default:
		ret, err = newArgInfo(f.Returns, ctx, "")
	}
	if err != nil {
		return nil, err
	}
	fi.Ret = ret
	return fi, nil
}

// ArgDeclStrings lists the C parameter declarations in order: error-out
// argument, implicit this, then the lowered parameters.
func (fi *FuncInfo) ArgDeclStrings() []string {
	var out []string
	if fi.ErrorArg {
		out = append(out, errorArgString(fi.C99))
	}
	if fi.Kind == Dtor || fi.Kind == MemberOp || (fi.Kind == MemberFunc && !fi.IsStatic) {
		out = append(out, fi.ClassArg)
	}
	for _, arg := range fi.Args {
		out = append(out, arg.TypeNameString())
	}
	return out
}

func (fi *FuncInfo) IsDefaultCtor() bool {
	return fi.Kind == Ctor && len(fi.Func.Args) == 0
}
