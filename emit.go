package cpp2c

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
)

// memoryFile buffers one output file as lines, with a single movable
// insertion mark: handle typedefs, typedef mirrors and enums are
// inserted at the mark so they stay ahead of every prototype that
// references them. Nothing reaches disk until flush.
type memoryFile struct {
	path  string
	lines []string
	mark  int
}

func newMemoryFile(path string) *memoryFile { return &memoryFile{path: path} }

func (m *memoryFile) writeLine(s string) { m.lines = append(m.lines, s) }

func (m *memoryFile) writeAtMark(s string) {
	m.lines = append(m.lines, "")
	copy(m.lines[m.mark+1:], m.lines[m.mark:])
	m.lines[m.mark] = s
	m.mark++
}

func (m *memoryFile) setMark() { m.mark = len(m.lines) }

func (m *memoryFile) flush() error {
	return os.WriteFile(m.path, []byte(strings.Join(m.lines, "\n")+"\n"), 0644)
}

const dllMainText = `#ifdef WIN32
#include <Windows.h>
extern "C" BOOL WINAPI DllMain(
    HINSTANCE hinstDLL,  // handle to DLL module
    DWORD fdwReason,     // reason for calling function
    LPVOID lpReserved )  // reserved
{
    switch( fdwReason )
    {
        case DLL_PROCESS_ATTACH:
            // Initialize once for each new process.
            break;
        case DLL_THREAD_ATTACH:
            // Do thread-specific initialization.
            break;
        case DLL_THREAD_DETACH:
            // Do thread-specific cleanup.
            break;
        case DLL_PROCESS_DETACH:
            // Perform any necessary cleanup.
            break;
    }
    return TRUE;  // Successful DLL_PROCESS_ATTACH.
}
#endif  // WIN32`

// emitter writes the generated header, implementation and export files.
type emitter struct {
	opts       *Options
	headerPath string
	baseName   string
	basePath   string

	h   *memoryFile
	cpp *memoryFile
	def *memoryFile

	errorArg bool

	// onUnsupported decides whether a failed declaration is skipped or
	// aborts the run; configured by the driver.
	onUnsupported func(error) error
}

func newEmitter(headerPath string, opts *Options) (*emitter, error) {
	headerName := filepath.Base(headerPath)
	idx := strings.LastIndex(headerName, ".h")
	if idx < 0 {
		return nil, fmt.Errorf("input file %q is not a header", headerPath)
	}
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	baseName := headerName[:idx] + generatedFileSuffix
	basePath := filepath.Join(outDir, baseName)
	e := &emitter{
		opts:       opts,
		headerPath: headerPath,
		baseName:   baseName,
		basePath:   basePath,
		h:          newMemoryFile(basePath + ".h"),
		cpp:        newMemoryFile(basePath + ".cpp"),
		errorArg:   opts.GenerateErrorArg,
	}
	e.onUnsupported = func(err error) error { return err }
	if opts.GenerateDL {
		e.def = newMemoryFile(basePath + ".def")
	}
	return e, nil
}

func (e *emitter) writeDef(s string) {
	if e.def != nil {
		e.def.writeLine(s)
	}
}

func (e *emitter) files() []string {
	out := []string{e.h.path, e.cpp.path}
	if e.def != nil {
		out = append(out, e.def.path)
	}
	return out
}

// close flushes every buffer to disk; until here a failed run leaves no
// output behind.
func (e *emitter) close() error {
	if err := e.h.flush(); err != nil {
		return err
	}
	if err := e.cpp.flush(); err != nil {
		return err
	}
	if e.def != nil {
		return e.def.flush()
	}
	return nil
}

func (e *emitter) verboseComment(kind, what string) string {
	if !e.opts.Verbose {
		return ""
	}
	return fmt.Sprintf("\t/* A C wrapper for %s %s */", kind, what)
}

func (e *emitter) emitPrefix() {
	e.cpp.writeLine(fmt.Sprintf("#include %q", filepath.Base(e.headerPath)))
	e.cpp.writeLine(fmt.Sprintf("#include %q", e.baseName+".h"))
	e.writeDef(fmt.Sprintf("LIBRARY %q", e.baseName))
	e.writeDef("EXPORTS")

	guard := headerGuardName(e.basePath)
	e.h.writeLine("#ifndef " + guard)
	e.h.writeLine("#define " + guard)
	e.h.writeLine("#ifdef __cplusplus")
	e.h.writeLine(`extern "C" {`)
	e.h.writeLine("#endif")
	if !e.opts.C99 {
		e.h.writeLine(fmt.Sprintf("#define %s 0", cFalseVal))
		e.h.writeLine(fmt.Sprintf("#define %s 1", cTrueVal))
		e.h.writeLine(fmt.Sprintf("typedef unsigned char %s;", cBoolTypeName))
	}
	e.h.setMark()

	if e.opts.GenerateDL {
		e.cpp.writeLine(dllMainText)
	}
}

func (e *emitter) emitSuffix() {
	e.h.writeLine("#ifdef __cplusplus")
	e.h.writeLine("}")
	e.h.writeLine("#endif /* __cplusplus */")
	e.h.writeLine(fmt.Sprintf("#endif /* %s */", headerGuardName(e.basePath)))
}

// emitClassHandle declares the opaque handle for a class at the mark.
func (e *emitter) emitClassHandle(d Decl, ctx *Context, altPtrName string) {
	cName, ptrName := ctx.AddClass(d, altPtrName)
	e.h.writeAtMark(fmt.Sprintf("typedef struct _%s *%s;%s",
		cName, ptrName, e.verboseComment("class", FullName(d))))
}

func (e *emitter) emitEnum(en *Enum, ctx *Context) {
	if ctx.enumEmitted(en) {
		return
	}
	ctx.markEnumEmitted(en)
	ctx.AddEnum(en)
	cName := ctx.enums[FullName(en)]
	e.h.writeAtMark(fmt.Sprintf("enum %s {", cName))
	parts := make([]string, len(en.Values))
	for i, v := range en.Values {
		// Enumerators from different namespaces collide in C's flat
		// namespace; they always carry an occurrence suffix.
		parts[i] = fmt.Sprintf("\t%s=%d", ctx.UniqueNameForced(v.Name), v.Value)
	}
	e.h.writeAtMark(strings.Join(parts, ",\n"))
	e.h.writeAtMark("};" + e.verboseComment("enum", FullName(en)))
}

// emitTypedef mirrors a typedef into C. Typedefs whose target is a
// class or reference have no C rendition and are silently skipped; they
// keep their opaque-handle form instead.
func (e *emitter) emitTypedef(td *Typedef, ctx *Context) error {
	if ctx.typedefEmitted(td) {
		return nil
	}
	info, err := newArgInfo(td.Type, ctx, mangleCToken(FullName(td)))
	if err != nil {
		return err
	}
	if !info.IsCDecl {
		return nil
	}
	ctx.markTypedefEmitted(td)
	// Enums and typedefs discovered while lowering this one must land
	// ahead of the line referencing them.
	e.drainPendingAtMark(ctx)
	e.h.writeAtMark(fmt.Sprintf("typedef %s;%s",
		info.TypeNameString(), e.verboseComment("typedef", FullName(td))))
	ctx.AddTypedef(td)
	return nil
}

func (e *emitter) drainPendingAtMark(ctx *Context) {
	for len(ctx.pendingEnums) > 0 || len(ctx.pendingTypedefs) > 0 {
		if len(ctx.pendingEnums) > 0 {
			en := ctx.pendingEnums[0]
			ctx.pendingEnums = ctx.pendingEnums[1:]
			e.emitEnum(en, ctx)
			continue
		}
		td := ctx.pendingTypedefs[0]
		ctx.pendingTypedefs = ctx.pendingTypedefs[1:]
		if err := e.emitTypedef(td, ctx); err != nil {
			glog.Warningf("skipping typedef %s: %v", FullName(td), err)
		}
	}
}

func (e *emitter) guardedFunc(f *Function, ctx *Context, arrayVersion, minArgsOnly bool) error {
	if err := e.emitFunc(f, ctx, arrayVersion, minArgsOnly); err != nil {
		return e.onUnsupported(err)
	}
	return nil
}

// emitClassBody emits the public callables of a class: constructors,
// destructor (plus array forms when default construction is possible),
// member functions, and member operators unless suppressed. Pure virtual
// members are skipped.
func (e *emitter) emitClassBody(cls *Class, ctx *Context) error {
	for _, ctor := range cls.Constructors() {
		if ctor.Access != AccessPublic {
			continue
		}
		if err := e.guardedFunc(ctor, ctx, false, false); err != nil {
			return err
		}
	}

	if cls.HasPublicDtor() {
		dtor := cls.Destructor()
		if err := e.guardedFunc(dtor, ctx, false, false); err != nil {
			return err
		}
		if defaultCtor := cls.PublicDefaultCtor(); defaultCtor != nil {
			if err := e.guardedFunc(defaultCtor, ctx, true, false); err != nil {
				return err
			}
			if err := e.guardedFunc(dtor, ctx, true, false); err != nil {
				return err
			}
		}
	}

	for _, m := range cls.MemberFunctions() {
		if !m.isPublicConcrete() {
			continue
		}
		if err := e.guardedFunc(m, ctx, false, false); err != nil {
			return err
		}
	}
	if e.opts.GenerateOperators {
		for _, op := range cls.MemberOperators() {
			if !op.isPublicConcrete() {
				continue
			}
			if err := e.guardedFunc(op, ctx, false, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitStdString handles the std::string / std::wstring special case. In
// compact mode only the lifecycle surface and c_str are emitted; in full
// mode the class is expanded recursively like any other once referenced.
func (e *emitter) emitStdString(td *Typedef, ctx *Context) error {
	wide, cls, ptrName, err := ctx.AddStdString(td)
	if err != nil {
		return err
	}
	if !e.opts.CompactString {
		return nil
	}
	e.emitClassHandle(cls, ctx, ptrName)

	defaultCtor := cls.PublicDefaultCtor()
	if defaultCtor == nil {
		return unsupportedf("string class", "%s has no public default constructor", FullName(cls))
	}
	if err := e.guardedFunc(defaultCtor, ctx, false, false); err != nil {
		return err
	}
	if err := e.guardedFunc(defaultCtor, ctx, true, false); err != nil {
		return err
	}

	charPtr := "const char *"
	if wide {
		charPtr = "const wchar_t *"
	}
	for _, ctor := range cls.Constructors() {
		req := ctor.RequiredArgs()
		if len(req) == 1 && req[0].Type.String() == charPtr {
			// Minimum arity only: the allocator argument is dropped.
			if err := e.guardedFunc(ctor, ctx, false, true); err != nil {
				return err
			}
			break
		}
	}

	dtor := cls.Destructor()
	if err := e.guardedFunc(dtor, ctx, false, false); err != nil {
		return err
	}
	if err := e.guardedFunc(dtor, ctx, true, false); err != nil {
		return err
	}

	for _, m := range cls.MemberFunctions() {
		if m.Name == "c_str" {
			return e.guardedFunc(m, ctx, false, false)
		}
	}
	return nil
}

// emitFunc writes the prototype, export entry and thunk body for one
// callable, once per supported arity when it has default arguments.
func (e *emitter) emitFunc(f *Function, ctx *Context, arrayVersion, minArgsOnly bool) error {
	fi, err := newFuncInfo(f, ctx, e.errorArg, minArgsOnly)
	if err != nil {
		return err
	}

	cFuncName := fi.CName
	if fi.Kind == Dtor {
		// Parsers name destructors of declaration-only classes with a
		// synthetic token; substitute the class name.
		cFuncName = dtorTokenRE.ReplaceAllString(cFuncName, mangleCToken(f.DeclParent().DeclName()))
	}
	if arrayVersion {
		cFuncName += "_array"
	}

	for used := 0; used <= fi.OptionalArgs; used++ {
		declArgs := fi.ArgDeclStrings()
		declArgs = declArgs[:len(declArgs)-used]
		if arrayVersion && fi.Kind == Ctor {
			declArgs = append(declArgs, "size_t "+arraySizeVarName)
		}

		implArgs := make([]string, 0, len(fi.Args))
		for _, arg := range fi.Args[:len(fi.Args)-used] {
			redirection := ""
			if arg.IsRedirected {
				redirection = "*"
			}
			cast := ""
			if arg.Cast != "" {
				cast = "(" + arg.Cast + ")"
			}
			implArgs = append(implArgs, redirection+cast+arg.Name)
		}
		implArgsStr := strings.Join(implArgs, ", ")

		uniqueName := ctx.UniqueName(cFuncName)
		if e.opts.CamelCase {
			uniqueName = toUpperCamelCase(uniqueName)
		}
		e.writeDef("\t" + uniqueName)

		prototype := fmt.Sprintf("%s %s(%s)", fi.Ret.CType, uniqueName, strings.Join(declArgs, ", "))
		e.h.writeLine(prototype + ";" + e.verboseComment("func", f.declString()))
		e.cpp.writeLine(prototype + " {")

		nothrow := ""
		if !e.opts.GenerateExceptionHandling {
			nothrow = "(std::nothrow) "
		}

		var body []string
		callName := fi.FullName
		if fi.Redirection != "" {
			callName = f.Name
		}
		callExpr := fmt.Sprintf("%s%s(%s)", fi.Redirection, callName, implArgsStr)

		switch {
		case fi.Kind == Ctor:
			ctorArgs := ""
			if len(implArgs) > 0 {
				ctorArgs = "(" + implArgsStr + ")"
			}
			arrayStr := ""
			if arrayVersion {
				arrayStr = "[" + arraySizeVarName + "]"
			}
			callExpr = fmt.Sprintf("new %s%s%s%s", nothrow, fi.Ret.ClassName, ctorArgs, arrayStr)
		case fi.Kind == Dtor:
			del := "delete "
			if arrayVersion {
				del = "delete[] "
			}
			callExpr = fmt.Sprintf("%s(%s*)%s", del, ctx.FullName(f.DeclParent()), thisVarName)
		case fi.Ret.IsClass && fi.Ret.IsRedirected && !fi.Ret.IsRef:
			// Returned by value: heap-copy so the instance stays
			// addressable across the C boundary.
			switch {
			case fi.Ret.CanCopy.granted(e.opts.AssumeCopy):
				callExpr = fmt.Sprintf("new %s%s(%s)", nothrow, fi.Ret.ClassName, callExpr)
			case fi.Ret.CanDefaultAssign.granted(e.opts.AssumeAssign):
				body = append(body, fmt.Sprintf("%s *%s = new %s%s;",
					fi.Ret.ClassName, retValClassVarName, nothrow, fi.Ret.ClassName))
				nullCheck := ""
				if !e.opts.GenerateExceptionHandling {
					nullCheck = fmt.Sprintf("if((void*)%s != NULL) ", retValClassVarName)
				}
				body = append(body, fmt.Sprintf("%s*%s = %s;", nullCheck, retValClassVarName, callExpr))
				callExpr = retValClassVarName
			default:
				return unsupportedf("class return value",
					"%s returns a class with no public copy constructor nor default constructor and assignment operator", fi.FullName)
			}
		}

		returnPrefix := "return "
		if fi.Ret.IsVoid() {
			returnPrefix = ""
		}
		castStr := ""
		if fi.Ret.Cast != "" {
			castStr = "(" + fi.Ret.CType + ")"
		}
		refStr := ""
		if fi.Ret.IsRef {
			refStr = "&"
		}
		body = append(body, fmt.Sprintf("%s%s%s%s;", returnPrefix, castStr, refStr, callExpr))

		e.writeThunkBody(body, fi)
		e.cpp.writeLine("}")
	}
	return nil
}

// writeThunkBody wraps the statements in the exception interception
// block: the error flag is cleared on entry, set in the handler, and a
// sentinel is returned so no C++ exception ever crosses the C boundary.
func (e *emitter) writeThunkBody(body []string, fi *FuncInfo) {
	if !e.opts.GenerateExceptionHandling {
		for _, line := range body {
			e.cpp.writeLine("    " + line)
		}
		return
	}
	trueVal, falseVal := cTrueVal, cFalseVal
	if fi.C99 {
		trueVal, falseVal = "true", "false"
	}
	e.cpp.writeLine("    try {")
	if fi.ErrorArg {
		e.cpp.writeLine(fmt.Sprintf("        if((void *)%s != NULL) (*%s) = %s;",
			wasExceptionArgName, wasExceptionArgName, falseVal))
	}
	for _, line := range body {
		e.cpp.writeLine("        " + line)
	}
	e.cpp.writeLine("    }")
	e.cpp.writeLine("    catch(...) {")
	if fi.ErrorArg {
		e.cpp.writeLine(fmt.Sprintf("        if((void *)%s != NULL) (*%s) = %s;",
			wasExceptionArgName, wasExceptionArgName, trueVal))
	}
	if !fi.Ret.IsVoid() {
		e.cpp.writeLine(fmt.Sprintf("        return (%s) %s;", fi.Ret.CType, retValOnException))
	}
	e.cpp.writeLine("    }")
}
