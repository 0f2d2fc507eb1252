package plan

// StepKind tags the concrete variant of a Step. Grafast steps are dynamic
// classes in the original implementation; here each kind is a variant of
// this sum type, with a registry mapping the kind back to a (module,
// exportName) pair so compiled plans stay describable across process
// boundaries (spec.md §9, "Dynamic step classes → tagged variants").
type StepKind int

const (
	StepKindUnknown StepKind = iota
	StepKindConstant
	StepKindContext
	StepKindAccess
	StepKindObject
	StepKindList
	StepKindLambda
	StepKindKeyProjection
	StepKindPgSelect
	StepKindPgSelectSingle
)

func (k StepKind) String() string {
	switch k {
	case StepKindConstant:
		return "constant"
	case StepKindContext:
		return "context"
	case StepKindAccess:
		return "access"
	case StepKindObject:
		return "object"
	case StepKindList:
		return "list"
	case StepKindLambda:
		return "lambda"
	case StepKindKeyProjection:
		return "keyProjection"
	case StepKindPgSelect:
		return "pgSelect"
	case StepKindPgSelectSingle:
		return "pgSelectSingle"
	default:
		return "unknown"
	}
}

// StepKindDescriptor is the (module, exportName) pair a StepKind round-trips
// as for wire-visible serialization of compiled plans (spec.md §6, "To step
// authors").
type StepKindDescriptor struct {
	Module     string
	ExportName string
}

var stepKindRegistry = map[StepKind]StepKindDescriptor{}

// RegisterStepKind records the module/export name a step kind should be
// described as. Step implementations call this from an init() func.
func RegisterStepKind(kind StepKind, descriptor StepKindDescriptor) {
	stepKindRegistry[kind] = descriptor
}

// DescribeStepKind returns the registered descriptor for kind, if any.
func DescribeStepKind(kind StepKind) (StepKindDescriptor, bool) {
	d, ok := stepKindRegistry[kind]
	return d, ok
}

func init() {
	RegisterStepKind(StepKindConstant, StepKindDescriptor{Module: "grafast/plan", ExportName: "ConstantStep"})
	RegisterStepKind(StepKindContext, StepKindDescriptor{Module: "grafast/plan", ExportName: "ContextStep"})
	RegisterStepKind(StepKindAccess, StepKindDescriptor{Module: "grafast/plan", ExportName: "AccessStep"})
	RegisterStepKind(StepKindObject, StepKindDescriptor{Module: "grafast/plan", ExportName: "ObjectStep"})
	RegisterStepKind(StepKindList, StepKindDescriptor{Module: "grafast/plan", ExportName: "ListStep"})
	RegisterStepKind(StepKindLambda, StepKindDescriptor{Module: "grafast/plan", ExportName: "LambdaStep"})
	RegisterStepKind(StepKindKeyProjection, StepKindDescriptor{Module: "grafast/plan", ExportName: "KeyProjectionStep"})
	RegisterStepKind(StepKindPgSelect, StepKindDescriptor{Module: "grafast/pgsource", ExportName: "PgSelectStep"})
	RegisterStepKind(StepKindPgSelectSingle, StepKindDescriptor{Module: "grafast/pgsource", ExportName: "PgSelectSingleStep"})
}

// StepFlag is a bitset drawn from the flag vocabulary of spec.md §3.
type StepFlag uint32

const (
	FlagSyncAndSafe StepFlag = 1 << iota
	FlagSideEffecting
	FlagStreamCapable
	FlagPolymorphic
	FlagMutationField
	FlagDeduplicatable
	FlagInlineable
)

// FlagHasSideEffects is kept as an alias of FlagSideEffecting: spec.md §3
// lists both "side-effecting" and "hasSideEffects" in its flag vocabulary
// (the TypeScript original exposes the same concept under two names, one
// on the step and one on its dependents' view of it).
const FlagHasSideEffects = FlagSideEffecting

// Has reports whether all bits of want are set in f.
func (f StepFlag) Has(want StepFlag) bool {
	return f&want == want
}

func (f StepFlag) String() string {
	names := []struct {
		flag StepFlag
		name string
	}{
		{FlagSyncAndSafe, "sync-and-safe"},
		{FlagSideEffecting, "side-effecting"},
		{FlagStreamCapable, "stream-capable"},
		{FlagPolymorphic, "polymorphic"},
		{FlagMutationField, "mutation-field"},
		{FlagDeduplicatable, "deduplicatable"},
		{FlagInlineable, "inlineable"},
	}
	out := ""
	for _, n := range names {
		if f.Has(n.flag) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}
