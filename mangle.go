package cpp2c

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Fixed identifiers of the generated C surface.
const (
	generatedFileSuffix = "_C_Wrapper"

	thisVarName         = "class_this"
	arraySizeVarName    = "arr_size"
	retValClassVarName  = "ptr_ret_val_class"
	wasExceptionArgName = "ptr_was_exception"
	retValOnException   = "NULL"

	cBoolTypeName = "BOOL_C"
	cTrueVal      = "TRUE_C"
	cFalseVal     = "FALSE_C"
)

// Parsers name the destructor of a declaration-only class with a
// synthetic `._<n>` token; the emitter substitutes the class name.
var dtorTokenRE = regexp.MustCompile(`\._\d+`)

// operatorWords maps C++ operator tokens to identifier words. The `=` /
// `!=` word pair is kept as-is from the reference table; see DESIGN.md.
var operatorWords = map[string]string{
	"+":         "plus",
	"-":         "minus",
	"*":         "multiply",
	"/":         "division",
	"%":         "mod",
	"^":         "bitwise_xor",
	"&":         "bitwise_and",
	"|":         "bitwise_or",
	"~":         "bitwise_not",
	"!":         "not",
	"=":         "assign",
	"<":         "smaller",
	">":         "bigger",
	"+=":        "plus_assign",
	"-=":        "minus_assign",
	"*=":        "multiply_assign",
	"/=":        "division_assign",
	"%=":        "mod_assign",
	"^=":        "bitwise_xor_assign",
	"&=":        "bitwise_and_assign",
	"|=":        "bitwise_or_assign",
	"<<":        "shift_left",
	">>":        "shift_right",
	"<<=":       "shift_left_assign",
	">>=":       "shift_right_assign",
	"==":        "equal",
	"!=":        "not_assign",
	"<=":        "smaller_or_equal",
	">=":        "bigger_or_equal",
	"&&":        "and",
	"||":        "or",
	"++":        "plus_plus",
	"--":        "minus_minus",
	",":         "comma",
	"->*":       "pointer_redirect",
	"->":        "redirect",
	"()":        "function_call",
	"[]":        "subscript",
	"new":       "new",
	"new []":    "new_array",
	"delete":    "delete",
	"delete []": "delete_array",
}

// operatorTokensByLength lists the tokens longest first so that `+=` is
// substituted before `+` or `=`. Equal lengths order lexicographically
// to keep the scan deterministic.
func operatorTokensByLength() []string {
	tokens := make([]string, 0, len(operatorWords))
	for tok := range operatorWords {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}

// stripGlobalNS removes the leading global-namespace qualifier from a
// C++ declaration string.
func stripGlobalNS(s string) string { return strings.TrimLeft(s, ":") }

var cTokenReplacer = strings.NewReplacer(
	"::", "_", // namespaces
	"~", "delete_", // destructors
	">", "_", "<", "_", " ", "", ",", "_", // template punctuation
	"*", "_ptr_",
	"&", "_ref_",
)

// mangleCToken turns a qualified C++ name into a legal C identifier.
func mangleCToken(cppName string) string {
	return cTokenReplacer.Replace(stripGlobalNS(cppName))
}

// substituteOperatorTokens rewrites the operator token of a raw, not yet
// mangled operator name into its word form. The name is first normalized so the
// operator token is separated by an underscore ("operator+" becomes
// "operator_+"), then tokens are replaced longest first.
func substituteOperatorTokens(name string, tokens []string) string {
	if !strings.Contains(name, "operator_") {
		name = strings.ReplaceAll(name, "operator", "operator_")
	}
	for _, tok := range tokens {
		name = strings.ReplaceAll(name, tok, operatorWords[tok])
	}
	return name
}

func classPtrName(classCName string) string { return "PTR_" + classCName }

// toUpperCamelCase converts snake_case identifiers: "func_name" becomes
// "FuncName".
func toUpperCamelCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, "")
}

// headerGuardName derives the include guard from the generated header's
// base path: "Foo_C_Wrapper" yields "FOO_C_WRAPPER_H".
func headerGuardName(generatedBasePath string) string {
	name := filepath.Base(generatedBasePath + ".h")
	return strings.ReplaceAll(strings.ToUpper(name), ".", "_")
}

// tokenSub is one textual substitution applied to names; the context
// uses them to rewrite basic_string spellings to their typedef form.
type tokenSub struct {
	old string
	new string
}

func applySubs(s string, subs []tokenSub) string {
	for _, sub := range subs {
		s = strings.ReplaceAll(s, sub.old, sub.new)
	}
	return s
}

func errorArgString(c99 bool) string {
	boolType := cBoolTypeName
	if c99 {
		boolType = "bool"
	}
	return boolType + " *" + wasExceptionArgName
}
