package cpp2c

import (
	"path/filepath"

	"github.com/golang/glog"
	"go.uber.org/multierr"
)

// Report summarizes a generation run: the files written and the
// declarations skipped as unsupported.
type Report struct {
	Files        []string
	SkippedCount int
	Skipped      error
}

// Generate writes the C wrapper triple for one C++ header: the `.h`
// with opaque handles and prototypes, the `.cpp` with the thunk bodies,
// and optionally the `.def` export list. Emission order is fixed —
// prefix, std::string special case, class handles, typedefs, enums,
// class bodies, free functions, free operators, worklist drain, suffix —
// so two runs over the same input produce byte-identical files.
func Generate(headerPath string, opts *Options) (*Report, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	run := *opts
	if run.GenerateErrorArg && !run.GenerateExceptionHandling {
		glog.Warning("ignoring error argument generation, exception handling generation is disabled")
		run.GenerateErrorArg = false
	}

	headerPath, err := filepath.Abs(headerPath)
	if err != nil {
		return nil, err
	}

	parser := run.Parser
	if parser == nil {
		parser = NewGccXMLParser(run.GccXMLPath, run.IncludePaths, run.Compiler)
	}
	root, err := parser.Parse(headerPath)
	if err != nil {
		return nil, err
	}

	ctx := NewContext(root, run.C99)
	em, err := newEmitter(headerPath, &run)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	em.onUnsupported = func(err error) error {
		if _, ok := err.(*UnsupportedError); ok && run.IgnoreUnsupported {
			glog.Warning(err.Error())
			report.SkippedCount++
			report.Skipped = multierr.Append(report.Skipped, err)
			return nil
		}
		return err
	}

	em.emitPrefix()

	// std::string and std::wstring come first so every later reference
	// to the underlying instantiation is rewritten to the typedef form.
	for _, name := range []string{"::std::string", "::std::wstring"} {
		td := root.TypedefByName(name)
		if td == nil {
			continue
		}
		if err := em.emitStdString(td, ctx); err != nil {
			glog.V(1).Infof("skipping %s: %v", name, err)
		}
	}

	classes := root.ClassesInFile(headerPath)
	for _, cls := range classes {
		em.emitClassHandle(cls, ctx, "")
	}
	for _, td := range root.TypedefsInFile(headerPath) {
		glog.V(1).Infof("typedef %s", FullName(td))
		if err := em.emitTypedef(td, ctx); err != nil {
			if err = em.onUnsupported(err); err != nil {
				return nil, err
			}
		}
	}
	for _, en := range root.EnumsInFile(headerPath) {
		glog.V(1).Infof("enum %s", FullName(en))
		em.emitEnum(en, ctx)
	}
	for _, cls := range classes {
		glog.V(1).Infof("class %s", FullName(cls))
		if err := em.emitClassBody(cls, ctx); err != nil {
			return nil, err
		}
	}
	for _, f := range root.FreeFunctionsInFile(headerPath) {
		glog.V(1).Infof("function %s", FullName(f))
		if err := em.guardedFunc(f, ctx, false, false); err != nil {
			return nil, err
		}
	}
	if run.GenerateOperators {
		for _, op := range root.FreeOperatorsInFile(headerPath) {
			glog.V(1).Infof("operator %s", FullName(op))
			if err := em.guardedFunc(op, ctx, false, false); err != nil {
				return nil, err
			}
		}
	}

	// Drain transitively discovered declarations until fixpoint; class
	// bodies may queue further enums and typedefs while they emit.
	for !ctx.PendingEmpty() {
		kind, d := ctx.PopPending()
		switch kind {
		case pendingEnum:
			em.emitEnum(d.(*Enum), ctx)
		case pendingTypedef:
			if err := em.emitTypedef(d.(*Typedef), ctx); err != nil {
				if err = em.onUnsupported(err); err != nil {
					return nil, err
				}
			}
		case pendingClass:
			cls := d.(*Class)
			em.emitClassHandle(cls, ctx, "")
			if err := em.emitClassBody(cls, ctx); err != nil {
				return nil, err
			}
		}
	}

	em.emitSuffix()
	if err := em.close(); err != nil {
		return nil, err
	}
	report.Files = em.files()
	return report, nil
}
