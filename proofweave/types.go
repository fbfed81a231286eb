// Package proofweave implements the PWK kernel: the trusted checker for
// PWOF v1 proof objects under the PWK_ND_PROP_EQ_v1 ruleset. The kernel is
// the only trusted component in the proof pipeline — everything that
// produces a candidate proof (search engines, tactics, model suggestions)
// is untrusted and must pass through Check before being believed.
//
// Formula encoding (mirrors the wire schema exactly):
//
//	Atom:       {"atom":{"pred":"P","args":[<term>, ...]}}
//	Equality:   {"eq":{"left":<term>,"right":<term>}}
//	And:        {"and":[f1,f2]}
//	Or:         {"or":[f1,f2]}
//	Imp:        {"imp":[f1,f2]}
//	Not:        {"not":f}
//
// Terms:
//
//	Var: {"var":"x"}
//	Fun: {"fun":{"name":"f","args":[t1,...]}}
package proofweave

// PWOFVersion is the only pwof_version this kernel accepts.
const PWOFVersion = "1"

// SupportedRulesets lists every ruleset_id this kernel accepts.
var SupportedRulesets = []string{"PWK_ND_PROP_EQ_v1"}

// RuleID names one inference rule in the PWK_ND_PROP_EQ_v1 ruleset.
type RuleID string

const (
	RuleAssume      RuleID = "ASSUME"
	RuleReiterate   RuleID = "REITERATE"
	RuleImpElim     RuleID = "IMP_ELIM"
	RuleAndIntro    RuleID = "AND_INTRO"
	RuleAndElimL    RuleID = "AND_ELIM_L"
	RuleAndElimR    RuleID = "AND_ELIM_R"
	RuleOrIntroL    RuleID = "OR_INTRO_L"
	RuleOrIntroR    RuleID = "OR_INTRO_R"
	RuleNotElim     RuleID = "NOT_ELIM"
	RuleEqRefl      RuleID = "EQ_REFL"
	RuleEqSymm      RuleID = "EQ_SYMM"
	RuleEqTrans     RuleID = "EQ_TRANS"
	RuleEqSubstPred RuleID = "EQ_SUBST_PRED"
)

// Formula is a tagged-variant logical formula, represented as its raw
// JSON-shaped map so it can be compared structurally by canonical form
// without a bespoke AST, and round-trips through the wire schema exactly.
type Formula map[string]any

// Term is a tagged-variant logic term (var or fun), same representation
// rationale as Formula.
type Term map[string]any

// VarTerm builds a variable term {"var": name}.
func VarTerm(name string) Term {
	return Term{"var": name}
}

// FunTerm builds a function term {"fun": {"name": name, "args": [...]}}.
func FunTerm(name string, args []Term) Term {
	raw := make([]any, len(args))
	for i, a := range args {
		raw[i] = map[string]any(a)
	}
	return Term{"fun": map[string]any{"name": name, "args": raw}}
}

// AtomFormula builds {"atom": {"pred": pred, "args": [...]}}.
func AtomFormula(pred string, args []Term) Formula {
	raw := make([]any, len(args))
	for i, a := range args {
		raw[i] = map[string]any(a)
	}
	return Formula{"atom": map[string]any{"pred": pred, "args": raw}}
}

// EqFormula builds {"eq": {"left": left, "right": right}}.
func EqFormula(left, right Term) Formula {
	return Formula{"eq": map[string]any{"left": map[string]any(left), "right": map[string]any(right)}}
}

// AndFormula builds {"and": [f1, f2]}.
func AndFormula(f1, f2 Formula) Formula {
	return Formula{"and": []any{map[string]any(f1), map[string]any(f2)}}
}

// OrFormula builds {"or": [f1, f2]}.
func OrFormula(f1, f2 Formula) Formula {
	return Formula{"or": []any{map[string]any(f1), map[string]any(f2)}}
}

// ImpFormula builds {"imp": [f1, f2]}.
func ImpFormula(f1, f2 Formula) Formula {
	return Formula{"imp": []any{map[string]any(f1), map[string]any(f2)}}
}

// NotFormula builds {"not": f}.
func NotFormula(f Formula) Formula {
	return Formula{"not": map[string]any(f)}
}

// FalseFormula is the False atom (⊥): {"atom": {"pred": "False", "args": []}}.
func FalseFormula() Formula {
	return Formula{"atom": map[string]any{"pred": "False", "args": []any{}}}
}

// ProofNode is one step in a proof: a rule application deriving formula
// from premises.
type ProofNode struct {
	NodeID        string         `json:"id"`
	Rule          string         `json:"rule"`
	Premises      []string       `json:"premises"`
	Formula       Formula        `json:"formula"`
	Justification map[string]any `json:"justification,omitempty"`
}

// ProofObject is a full PWOF v1 proof object.
type ProofObject struct {
	PWOFVersion string         `json:"pwof_version"`
	RulesetID   string         `json:"ruleset_id"`
	Context     ProofContext   `json:"context"`
	Goal        ProofGoal      `json:"goal"`
	Proof       ProofBody      `json:"proof"`
	Who         map[string]any `json:"who,omitempty"`
	Why         map[string]any `json:"why,omitempty"`
}

// ProofContext carries the assumptions available to ASSUME steps.
type ProofContext struct {
	Assumptions []Formula `json:"assumptions"`
}

// ProofGoal names the formula the proof must conclude.
type ProofGoal struct {
	Formula Formula `json:"formula"`
}

// ProofBody is the node list and declared conclusion node ID.
type ProofBody struct {
	Nodes      []ProofNode `json:"nodes"`
	Conclusion string      `json:"conclusion"`
}
