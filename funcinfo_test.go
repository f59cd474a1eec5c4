package cpp2c

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberTestClass(t *testing.T) (*Context, *Class) {
	t.Helper()
	root := &Namespace{}
	cls := &Class{Name: "C"}
	root.Add(cls)
	return NewContext(root, true), cls
}

func TestFuncInfoMemberFunction(t *testing.T) {
	ctx, cls := memberTestClass(t)
	f := &Function{Name: "f", Kind: MemberFunc, Access: AccessPublic,
		Returns: &FundamentalType{Name: "int"},
		Args:    []Argument{{Name: "x", Type: &FundamentalType{Name: "int"}}}}
	cls.Add(f)

	fi, err := newFuncInfo(f, ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, "C_f", fi.CName)
	assert.Equal(t, "((C*) class_this)->", fi.Redirection)
	assert.Equal(t, []string{"bool *ptr_was_exception", "PTR_C class_this", "int x"}, fi.ArgDeclStrings())
}

func TestFuncInfoConstMethod(t *testing.T) {
	ctx, cls := memberTestClass(t)
	f := &Function{Name: "size", Kind: MemberFunc, Access: AccessPublic, Const: true,
		Returns: &FundamentalType{Name: "int"}}
	cls.Add(f)

	fi, err := newFuncInfo(f, ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "C_size_const", fi.CName)
	assert.Equal(t, "((const C*) class_this)->", fi.Redirection)
	assert.Equal(t, []string{"const PTR_C class_this"}, fi.ArgDeclStrings())
}

func TestFuncInfoStaticMethod(t *testing.T) {
	ctx, cls := memberTestClass(t)
	f := &Function{Name: "make", Kind: MemberFunc, Access: AccessPublic, Static: true,
		Returns: &FundamentalType{Name: "void"}}
	cls.Add(f)

	fi, err := newFuncInfo(f, ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "C_make_static", fi.CName)
	assert.Empty(t, fi.Redirection)
	// Static methods take no this parameter.
	assert.Empty(t, fi.ArgDeclStrings())
}

func TestFuncInfoMemberOperator(t *testing.T) {
	ctx, cls := memberTestClass(t)
	f := &Function{Name: "operator+=", Kind: MemberOp, Access: AccessPublic,
		Returns: &ReferenceType{Referent: &DeclaratedType{Decl: cls}},
		Args:    []Argument{{Type: &FundamentalType{Name: "int"}}}}
	cls.Add(f)

	fi, err := newFuncInfo(f, ctx, false, false)
	require.NoError(t, err)
	// Longest token first: += becomes plus_assign, not plus followed by assign.
	assert.Equal(t, "C_operator_plus_assign", fi.CName)
	// The unnamed parameter gets a positional name.
	assert.Equal(t, "arg0", fi.Args[0].Name)
}

func TestFuncInfoFreeOperatorTemplateSafe(t *testing.T) {
	root := &Namespace{}
	ns := &Namespace{Name: "io"}
	root.Add(ns)
	f := &Function{Name: "operator<<", Kind: FreeOp, Access: AccessPublic,
		Returns: &FundamentalType{Name: "int"},
		Args:    []Argument{{Name: "fd", Type: &FundamentalType{Name: "int"}}}}
	ns.Add(f)
	ctx := NewContext(root, true)

	fi, err := newFuncInfo(f, ctx, false, false)
	require.NoError(t, err)
	// The operator token survives mangling: << is a word, not eaten
	// template punctuation.
	assert.Equal(t, "io_operator_shift_left", fi.CName)
}

func TestFuncInfoConstructor(t *testing.T) {
	ctx, cls := memberTestClass(t)
	f := &Function{Name: "C", Kind: Ctor, Access: AccessPublic}
	cls.Add(f)

	fi, err := newFuncInfo(f, ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, "C", fi.CName)
	assert.True(t, fi.IsDefaultCtor())
	assert.Equal(t, "PTR_C", fi.Ret.CType)
	assert.Equal(t, []string{"bool *ptr_was_exception"}, fi.ArgDeclStrings())
}

func TestFuncInfoDestructor(t *testing.T) {
	ctx, cls := memberTestClass(t)
	f := &Function{Name: "~C", Kind: Dtor, Access: AccessPublic}
	cls.Add(f)

	fi, err := newFuncInfo(f, ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "C_delete_C", fi.CName)
	assert.True(t, fi.Ret.IsVoid())
	assert.Equal(t, []string{"PTR_C class_this"}, fi.ArgDeclStrings())
}

func TestFuncInfoOptionalArgs(t *testing.T) {
	root := &Namespace{}
	f := &Function{Name: "f", Kind: FreeFunc, Access: AccessPublic,
		Returns: &FundamentalType{Name: "void"},
		Args: []Argument{
			{Name: "a", Type: &FundamentalType{Name: "int"}},
			{Name: "b", Type: &FundamentalType{Name: "int"}, Default: "0"},
			{Name: "c", Type: &FundamentalType{Name: "int"}, Default: "1"},
		}}
	root.Add(f)
	ctx := NewContext(root, true)

	fi, err := newFuncInfo(f, ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, fi.OptionalArgs)
	assert.Len(t, fi.Args, 3)

	minOnly, err := newFuncInfo(f, ctx, false, true)
	require.NoError(t, err)
	assert.Zero(t, minOnly.OptionalArgs)
	assert.Len(t, minOnly.Args, 1)
}

func TestFuncInfoEllipsisUnsupported(t *testing.T) {
	root := &Namespace{}
	f := &Function{Name: "printf_like", Kind: FreeFunc, Access: AccessPublic,
		Returns: &FundamentalType{Name: "int"}, HasEllipsis: true}
	root.Add(f)
	ctx := NewContext(root, true)

	_, err := newFuncInfo(f, ctx, false, false)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}
