package cpp2c

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedParser struct {
	root *Namespace
}

func (p fixedParser) Parse(string) (*Namespace, error) { return p.root, nil }

type generated struct {
	header string
	cpp    string
	def    string
	report *Report
}

// runGenerate drives a full generation over an in-memory namespace. The
// build callback receives the header path declarations must claim as
// their file to count as direct input declarations.
func runGenerate(t *testing.T, build func(header string) *Namespace, mutate func(*Options)) generated {
	t.Helper()
	dir := t.TempDir()
	header := filepath.Join(dir, "Foo.h")

	opts := DefaultOptions()
	opts.Parser = fixedParser{root: build(header)}
	opts.OutputDir = dir
	opts.Verbose = false
	opts.C99 = true
	opts.GenerateDL = false
	if mutate != nil {
		mutate(opts)
	}

	report, err := Generate(header, opts)
	require.NoError(t, err)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return ""
		}
		require.NoError(t, err)
		return string(data)
	}
	return generated{
		header: read("Foo_C_Wrapper.h"),
		cpp:    read("Foo_C_Wrapper.cpp"),
		def:    read("Foo_C_Wrapper.def"),
		report: report,
	}
}

func assertTextEqual(t *testing.T, expected, got string) {
	t.Helper()
	if expected == got {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, got, false)
	t.Errorf("output mismatch:\n%s", dmp.DiffPrettyText(diffs))
}

func TestGenerateEmptyNamespace(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		root.Add(&Namespace{Name: "N"})
		return root
	}, func(opts *Options) {
		opts.C99 = false
	})

	assertTextEqual(t, `#ifndef FOO_C_WRAPPER_H
#define FOO_C_WRAPPER_H
#ifdef __cplusplus
extern "C" {
#endif
#define FALSE_C 0
#define TRUE_C 1
typedef unsigned char BOOL_C;
#ifdef __cplusplus
}
#endif /* __cplusplus */
#endif /* FOO_C_WRAPPER_H */
`, out.header)

	assertTextEqual(t, `#include "Foo.h"
#include "Foo_C_Wrapper.h"
`, out.cpp)
	assert.Empty(t, out.def)
}

func podClass(header string) *Namespace {
	root := &Namespace{}
	cls := &Class{Name: "A", File: header}
	cls.Add(
		&Function{Name: "A", Kind: Ctor, Access: AccessPublic},
		&Function{Name: "f", Kind: MemberFunc, Access: AccessPublic,
			Returns: &FundamentalType{Name: "int"},
			Args:    []Argument{{Name: "x", Type: &FundamentalType{Name: "int"}}}},
	)
	root.Add(cls)
	return root
}

func TestGeneratePODClass(t *testing.T) {
	out := runGenerate(t, podClass, nil)

	assertTextEqual(t, `#ifndef FOO_C_WRAPPER_H
#define FOO_C_WRAPPER_H
#ifdef __cplusplus
extern "C" {
#endif
typedef struct _A *PTR_A;
PTR_A A(bool *ptr_was_exception);
void A_delete_A(bool *ptr_was_exception, PTR_A class_this);
PTR_A A_array(bool *ptr_was_exception, size_t arr_size);
void A_delete_A_array(bool *ptr_was_exception, PTR_A class_this);
int A_f(bool *ptr_was_exception, PTR_A class_this, int x);
#ifdef __cplusplus
}
#endif /* __cplusplus */
#endif /* FOO_C_WRAPPER_H */
`, out.header)

	assert.Contains(t, out.cpp, "PTR_A A(bool *ptr_was_exception) {")
	assert.Contains(t, out.cpp, "return (PTR_A)new A;")
	assert.Contains(t, out.cpp, "delete (A*)class_this;")
	assert.Contains(t, out.cpp, "return (PTR_A)new A[arr_size];")
	assert.Contains(t, out.cpp, "delete[] (A*)class_this;")
	assert.Contains(t, out.cpp, "return ((A*) class_this)->f(x);")
	assert.Contains(t, out.cpp, "    try {")
	assert.Contains(t, out.cpp, "    catch(...) {")
	assert.Contains(t, out.cpp, "if((void *)ptr_was_exception != NULL) (*ptr_was_exception) = false;")
	assert.Contains(t, out.cpp, "if((void *)ptr_was_exception != NULL) (*ptr_was_exception) = true;")
	assert.Contains(t, out.cpp, "return (int) NULL;")
}

func TestGenerateIdempotent(t *testing.T) {
	first := runGenerate(t, podClass, nil)
	second := runGenerate(t, podClass, nil)

	assert.Equal(t, first.header, second.header)
	assert.Equal(t, first.cpp, second.cpp)
}

func TestGenerateOperatorOverload(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		cls := &Class{Name: "V", File: header}
		constRef := func() Type {
			return &ReferenceType{Referent: &CvQualifiedType{Base: &DeclaratedType{Decl: cls}, Const: true}}
		}
		cls.Add(
			&Function{Name: "V", Kind: Ctor, Access: AccessPublic,
				Args: []Argument{{Name: "other", Type: constRef()}}},
			&Function{Name: "operator+", Kind: MemberOp, Access: AccessPublic, Const: true,
				Returns: &DeclaratedType{Decl: cls},
				Args:    []Argument{{Type: constRef()}}},
		)
		root.Add(cls)
		return root
	}, nil)

	assert.Contains(t, out.header,
		"PTR_V V_operator_plus_const(bool *ptr_was_exception, const PTR_V class_this, const PTR_V arg0);")
	assert.Contains(t, out.cpp,
		"return (PTR_V)new V(((const V*) class_this)->operator+(*(const V*)arg0));")
	// The copy constructor itself is wrapped too.
	assert.Contains(t, out.header, "PTR_V V(bool *ptr_was_exception, const PTR_V other);")
	assert.Contains(t, out.cpp, "return (PTR_V)new V(*(const V*)other);")
}

func TestGenerateDefaultArguments(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		root.Add(&Function{Name: "f", Kind: FreeFunc, Access: AccessPublic, File: header,
			Returns: &FundamentalType{Name: "void"},
			Args: []Argument{
				{Name: "a", Type: &FundamentalType{Name: "int"}},
				{Name: "b", Type: &FundamentalType{Name: "int"}, Default: "0"},
				{Name: "c", Type: &FundamentalType{Name: "int"}, Default: "1"},
			}})
		return root
	}, func(opts *Options) {
		opts.GenerateDL = true
	})

	assert.Contains(t, out.header, "void f(bool *ptr_was_exception, int a, int b, int c);")
	assert.Contains(t, out.header, "void f1(bool *ptr_was_exception, int a, int b);")
	assert.Contains(t, out.header, "void f2(bool *ptr_was_exception, int a);")
	assert.Contains(t, out.cpp, "f(a, b, c);")
	assert.Contains(t, out.cpp, "f(a, b);")
	assert.Contains(t, out.cpp, "f(a);")

	assertTextEqual(t, `LIBRARY "Foo_C_Wrapper"
EXPORTS
	f
	f1
	f2
`, out.def)
	// The def file implies the DllMain boilerplate in the cpp.
	assert.Contains(t, out.cpp, "#ifdef WIN32")
	assert.Contains(t, out.cpp, "DllMain(")
}

func TestGenerateEnumCollision(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		nsA := &Namespace{Name: "A"}
		nsB := &Namespace{Name: "B"}
		nsA.Add(&Enum{Name: "E", File: header, Values: []EnumValue{{Name: "X", Value: 0}}})
		nsB.Add(&Enum{Name: "E", File: header, Values: []EnumValue{{Name: "X", Value: 0}}})
		root.Add(nsA, nsB)
		return root
	}, nil)

	assert.Contains(t, out.header, "enum A_E {")
	assert.Contains(t, out.header, "enum B_E {")
	assert.Contains(t, out.header, "X1=0")
	assert.Contains(t, out.header, "X2=0")
	assert.NotContains(t, out.header, "\tX=0")
}

func stdStringNamespace(header string) *Namespace {
	root := &Namespace{}
	std := &Namespace{Name: "std"}
	root.Add(std)

	cls := &Class{Name: "basic_string"}
	constCharPtr := &PointerType{Pointee: &CvQualifiedType{Base: &FundamentalType{Name: "char"}, Const: true}}
	cls.Add(
		&Function{Name: "basic_string", Kind: Ctor, Access: AccessPublic},
		&Function{Name: "basic_string", Kind: Ctor, Access: AccessPublic,
			Args: []Argument{
				{Name: "s", Type: constCharPtr},
				{Name: "a", Type: &UnknownType{Spelling: "std::allocator<char>"}, Default: "std::allocator<char>()"},
			}},
		&Function{Name: "~basic_string", Kind: Dtor, Access: AccessPublic},
		&Function{Name: "c_str", Kind: MemberFunc, Access: AccessPublic, Const: true,
			Returns: &PointerType{Pointee: &CvQualifiedType{Base: &FundamentalType{Name: "char"}, Const: true}}},
	)
	td := &Typedef{Name: "string"}
	std.Add(cls, td)
	td.Type = &DeclaratedType{Decl: cls}
	return root
}

func TestGenerateStdStringCompact(t *testing.T) {
	out := runGenerate(t, stdStringNamespace, nil)

	assert.Contains(t, out.header, "typedef struct _std_string *PTR_std_string;")
	assert.Contains(t, out.header, "PTR_std_string std_string(bool *ptr_was_exception);")
	assert.Contains(t, out.header, "PTR_std_string std_string_array(bool *ptr_was_exception, size_t arr_size);")
	// The const char* constructor at minimum arity, allocator dropped.
	assert.Contains(t, out.header, "PTR_std_string std_string1(bool *ptr_was_exception, const char * s);")
	assert.Contains(t, out.header, "void std_string_delete_string(bool *ptr_was_exception, PTR_std_string class_this);")
	assert.Contains(t, out.header, "void std_string_delete_string_array(bool *ptr_was_exception, PTR_std_string class_this);")
	assert.Contains(t, out.header, "const char * std_string_c_str_const(bool *ptr_was_exception, const PTR_std_string class_this);")

	assert.Contains(t, out.cpp, "return (PTR_std_string)new std::string;")
	assert.Contains(t, out.cpp, "return (PTR_std_string)new std::string(s);")
	assert.Contains(t, out.cpp, "delete (std::string*)class_this;")
	assert.Contains(t, out.cpp, "delete[] (std::string*)class_this;")
	assert.Contains(t, out.cpp, "return ((const std::string*) class_this)->c_str();")
	// Nothing beyond the compact surface.
	assert.NotContains(t, out.header, "basic_string")
}

func TestGenerateWorklistDrain(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		ret := &Class{Name: "C", File: "other.h"}
		retCopy := Argument{Name: "other",
			Type: &ReferenceType{Referent: &CvQualifiedType{Base: &DeclaratedType{Decl: ret}, Const: true}}}
		ret.Add(
			&Function{Name: "C", Kind: Ctor, Access: AccessPublic, Args: []Argument{retCopy}},
			&Function{Name: "id", Kind: MemberFunc, Access: AccessPublic, Const: true,
				Returns: &FundamentalType{Name: "int"}},
		)
		user := &Class{Name: "B", File: header}
		user.Add(&Function{Name: "getC", Kind: MemberFunc, Access: AccessPublic,
			Returns: &DeclaratedType{Decl: ret}})
		root.Add(user, ret)
		return root
	}, nil)

	// C is not declared in the input header but is transitively
	// referenced; the drain emits both its handle and its body.
	assert.Contains(t, out.header, "typedef struct _C *PTR_C;")
	assert.Contains(t, out.header, "int C_id_const(bool *ptr_was_exception, const PTR_C class_this);")
	assert.Contains(t, out.cpp, "return (PTR_C)new C(((B*) class_this)->getC());")

	// Declaration-before-use: the handle precedes every prototype.
	handlePos := strings.Index(out.header, "typedef struct _C *PTR_C;")
	protoPos := strings.Index(out.header, "PTR_C B_getC")
	require.GreaterOrEqual(t, handlePos, 0)
	require.GreaterOrEqual(t, protoPos, 0)
	assert.Less(t, handlePos, protoPos)
}

func TestGenerateSkipsUnsupported(t *testing.T) {
	build := func(header string) *Namespace {
		root := &Namespace{}
		root.Add(
			&Function{Name: "printf_like", Kind: FreeFunc, Access: AccessPublic, File: header,
				Returns: &FundamentalType{Name: "int"}, HasEllipsis: true},
			&Function{Name: "ok", Kind: FreeFunc, Access: AccessPublic, File: header,
				Returns: &FundamentalType{Name: "void"}},
		)
		return root
	}

	out := runGenerate(t, build, nil)
	assert.NotContains(t, out.header, "printf_like")
	assert.Contains(t, out.header, "void ok(bool *ptr_was_exception);")
	assert.Equal(t, 1, out.report.SkippedCount)
	assert.Error(t, out.report.Skipped)
}

func TestGenerateStrictUnsupportedAborts(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "Foo.h")
	root := &Namespace{}
	root.Add(&Function{Name: "printf_like", Kind: FreeFunc, Access: AccessPublic, File: header,
		Returns: &FundamentalType{Name: "int"}, HasEllipsis: true})

	opts := DefaultOptions()
	opts.Parser = fixedParser{root: root}
	opts.OutputDir = dir
	opts.IgnoreUnsupported = false

	_, err := Generate(header, opts)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)

	// A failed run leaves no output behind.
	_, statErr := os.Stat(filepath.Join(dir, "Foo_C_Wrapper.h"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateNothrowMode(t *testing.T) {
	out := runGenerate(t, podClass, func(opts *Options) {
		opts.GenerateExceptionHandling = false
		// -n implies -e: the error argument is dropped.
		opts.GenerateErrorArg = true
	})

	assert.NotContains(t, out.cpp, "try {")
	assert.NotContains(t, out.cpp, "catch(...)")
	assert.NotContains(t, out.header, "ptr_was_exception")
	assert.Contains(t, out.cpp, "return (PTR_A)new (std::nothrow) A;")
	assert.Contains(t, out.header, "PTR_A A();")
}

func TestGenerateCamelCase(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		root.Add(&Function{Name: "do_stuff", Kind: FreeFunc, Access: AccessPublic, File: header,
			Returns: &FundamentalType{Name: "void"}})
		return root
	}, func(opts *Options) {
		opts.CamelCase = true
	})

	assert.Contains(t, out.header, "void DoStuff(bool *ptr_was_exception);")
}

func TestGenerateSuppressedOperators(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		cls := &Class{Name: "V", File: header}
		cls.Add(&Function{Name: "operator==", Kind: MemberOp, Access: AccessPublic, Const: true,
			Returns: &FundamentalType{Name: "bool"},
			Args:    []Argument{{Name: "rhs", Type: &ReferenceType{Referent: &CvQualifiedType{Base: &DeclaratedType{Decl: cls}, Const: true}}}}})
		root.Add(cls)
		return root
	}, func(opts *Options) {
		opts.GenerateOperators = false
	})

	assert.NotContains(t, out.header, "operator_equal")
}

func TestGenerateVerboseComments(t *testing.T) {
	out := runGenerate(t, podClass, func(opts *Options) {
		opts.Verbose = true
	})

	assert.Contains(t, out.header, "typedef struct _A *PTR_A;\t/* A C wrapper for class A */")
	assert.Contains(t, out.header, "/* A C wrapper for func A::f(int) */")
}

func TestGenerateTypedefOfEnum(t *testing.T) {
	out := runGenerate(t, func(header string) *Namespace {
		root := &Namespace{}
		ns := &Namespace{Name: "A"}
		root.Add(ns)
		en := &Enum{Name: "E", Values: []EnumValue{{Name: "X", Value: 0}}}
		td := &Typedef{Name: "alias", File: header}
		ns.Add(en, td)
		td.Type = &DeclaratedType{Decl: en}
		return root
	}, nil)

	assert.Contains(t, out.header, "enum A_E {")
	assert.Contains(t, out.header, "typedef enum A_E A_alias;")
	// The enum declaration precedes the typedef that references it.
	enumPos := strings.Index(out.header, "enum A_E {")
	typedefPos := strings.Index(out.header, "typedef enum A_E A_alias;")
	assert.Less(t, enumPos, typedefPos)
}
