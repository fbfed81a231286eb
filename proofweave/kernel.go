package proofweave

import (
	"fmt"

	"weaver.dev/core/primitives"
)

// Result reports the outcome of Check.
type Result struct {
	Passed    bool
	Message   string
	NodeCount int
	RulesUsed []string
}

func canonicalEqual(a, b any) bool {
	ja, err := primitives.CanonicalJSON(a)
	if err != nil {
		return false
	}
	jb, err := primitives.CanonicalJSON(b)
	if err != nil {
		return false
	}
	return string(ja) == string(jb)
}

func formulasEqual(f1, f2 Formula) bool { return canonicalEqual(map[string]any(f1), map[string]any(f2)) }
func termsEqual(t1, t2 Term) bool       { return canonicalEqual(map[string]any(t1), map[string]any(t2)) }

func isFalseAtom(f Formula) bool {
	atomAny, ok := f["atom"]
	if !ok {
		return false
	}
	atom, ok := atomAny.(map[string]any)
	if !ok {
		return false
	}
	pred, _ := atom["pred"].(string)
	if pred != "False" {
		return false
	}
	args, ok := atom["args"].([]any)
	return ok && len(args) == 0
}

func asTwoFormulas(v any) (Formula, Formula, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return nil, nil, false
	}
	f1, ok1 := arr[0].(map[string]any)
	f2, ok2 := arr[1].(map[string]any)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return Formula(f1), Formula(f2), true
}

func asFormula(v any) (Formula, bool) {
	m, ok := v.(map[string]any)
	return Formula(m), ok
}

func asEq(f Formula) (Term, Term, bool) {
	eqAny, ok := f["eq"]
	if !ok {
		return nil, nil, false
	}
	eq, ok := eqAny.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	left, ok1 := eq["left"].(map[string]any)
	right, ok2 := eq["right"].(map[string]any)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return Term(left), Term(right), true
}

func asAtom(f Formula) (pred string, args []any, ok bool) {
	atomAny, has := f["atom"]
	if !has {
		return "", nil, false
	}
	atom, ok := atomAny.(map[string]any)
	if !ok {
		return "", nil, false
	}
	pred, _ = atom["pred"].(string)
	args, _ = atom["args"].([]any)
	return pred, args, true
}

func checkAssume(node ProofNode, assumptions []Formula) bool {
	for _, a := range assumptions {
		if formulasEqual(node.Formula, a) {
			return true
		}
	}
	return false
}

func checkReiterate(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 1 {
		return false
	}
	premise, ok := derived[node.Premises[0]]
	if !ok {
		return false
	}
	return formulasEqual(node.Formula, premise)
}

func checkImpElim(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 2 {
		return false
	}
	p1, ok1 := derived[node.Premises[0]]
	p2, ok2 := derived[node.Premises[1]]
	if !ok1 || !ok2 {
		return false
	}

	impAny, has := p2["imp"]
	if !has {
		p1, p2 = p2, p1
		impAny, has = p2["imp"]
		if !has {
			return false
		}
	}
	antecedent, consequent, ok := asTwoFormulas(impAny)
	if !ok {
		return false
	}
	if !formulasEqual(p1, antecedent) {
		return false
	}
	return formulasEqual(node.Formula, consequent)
}

func checkAndIntro(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 2 {
		return false
	}
	p1, ok1 := derived[node.Premises[0]]
	p2, ok2 := derived[node.Premises[1]]
	if !ok1 || !ok2 {
		return false
	}
	andAny, has := node.Formula["and"]
	if !has {
		return false
	}
	f1, f2, ok := asTwoFormulas(andAny)
	if !ok {
		return false
	}
	return formulasEqual(p1, f1) && formulasEqual(p2, f2)
}

func checkAndElimL(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 1 {
		return false
	}
	premise, ok := derived[node.Premises[0]]
	if !ok {
		return false
	}
	andAny, has := premise["and"]
	if !has {
		return false
	}
	left, _, ok := asTwoFormulas(andAny)
	if !ok {
		return false
	}
	return formulasEqual(node.Formula, left)
}

func checkAndElimR(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 1 {
		return false
	}
	premise, ok := derived[node.Premises[0]]
	if !ok {
		return false
	}
	andAny, has := premise["and"]
	if !has {
		return false
	}
	_, right, ok := asTwoFormulas(andAny)
	if !ok {
		return false
	}
	return formulasEqual(node.Formula, right)
}

func checkOrIntroL(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 1 {
		return false
	}
	premise, ok := derived[node.Premises[0]]
	if !ok {
		return false
	}
	orAny, has := node.Formula["or"]
	if !has {
		return false
	}
	left, _, ok := asTwoFormulas(orAny)
	if !ok {
		return false
	}
	return formulasEqual(premise, left)
}

func checkOrIntroR(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 1 {
		return false
	}
	premise, ok := derived[node.Premises[0]]
	if !ok {
		return false
	}
	orAny, has := node.Formula["or"]
	if !has {
		return false
	}
	_, right, ok := asTwoFormulas(orAny)
	if !ok {
		return false
	}
	return formulasEqual(premise, right)
}

func checkNotElim(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 2 {
		return false
	}
	if !isFalseAtom(node.Formula) {
		return false
	}
	f1, ok1 := derived[node.Premises[0]]
	f2, ok2 := derived[node.Premises[1]]
	if !ok1 || !ok2 {
		return false
	}
	if _, has := f2["not"]; has {
		f1, f2 = f2, f1
	}
	notAny, has := f1["not"]
	if !has {
		return false
	}
	inner, ok := asFormula(notAny)
	if !ok {
		return false
	}
	return formulasEqual(inner, f2)
}

func checkEqRefl(node ProofNode) bool {
	if len(node.Premises) != 0 {
		return false
	}
	left, right, ok := asEq(node.Formula)
	if !ok {
		return false
	}
	return termsEqual(left, right)
}

func checkEqSymm(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 1 {
		return false
	}
	premise, ok := derived[node.Premises[0]]
	if !ok {
		return false
	}
	pLeft, pRight, ok1 := asEq(premise)
	cLeft, cRight, ok2 := asEq(node.Formula)
	if !ok1 || !ok2 {
		return false
	}
	return termsEqual(pLeft, cRight) && termsEqual(pRight, cLeft)
}

func checkEqTrans(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 2 {
		return false
	}
	f1, ok1 := derived[node.Premises[0]]
	f2, ok2 := derived[node.Premises[1]]
	if !ok1 || !ok2 {
		return false
	}
	eq1L, eq1R, ok3 := asEq(f1)
	eq2L, eq2R, ok4 := asEq(f2)
	eqcL, eqcR, ok5 := asEq(node.Formula)
	if !ok3 || !ok4 || !ok5 {
		return false
	}
	if termsEqual(eq1R, eq2L) {
		return termsEqual(eq1L, eqcL) && termsEqual(eq2R, eqcR)
	}
	if termsEqual(eq2R, eq1L) {
		return termsEqual(eq2L, eqcL) && termsEqual(eq1R, eqcR)
	}
	return false
}

func checkEqSubstPred(node ProofNode, derived map[string]Formula) bool {
	if len(node.Premises) != 2 {
		return false
	}
	f1, ok1 := derived[node.Premises[0]]
	f2, ok2 := derived[node.Premises[1]]
	if !ok1 || !ok2 {
		return false
	}

	var eqFormula, predFormula Formula
	if _, has := f1["eq"]; has {
		eqFormula, predFormula = f1, f2
	} else if _, has := f2["eq"]; has {
		eqFormula, predFormula = f2, f1
	} else {
		return false
	}

	predInName, argsIn, ok3 := asAtom(predFormula)
	predOutName, argsOut, ok4 := asAtom(node.Formula)
	if !ok3 || !ok4 {
		return false
	}
	if predInName != predOutName {
		return false
	}
	if len(argsIn) != 1 || len(argsOut) != 1 {
		return false
	}
	argIn, ok5 := argsIn[0].(map[string]any)
	argOut, ok6 := argsOut[0].(map[string]any)
	if !ok5 || !ok6 {
		return false
	}

	t1, t2, ok := asEq(eqFormula)
	if !ok {
		return false
	}

	in, out := Term(argIn), Term(argOut)
	if termsEqual(in, t1) && termsEqual(out, t2) {
		return true
	}
	if termsEqual(in, t2) && termsEqual(out, t1) {
		return true
	}
	return false
}

func checkRule(node ProofNode, assumptions []Formula, derived map[string]Formula) bool {
	switch RuleID(node.Rule) {
	case RuleAssume:
		return checkAssume(node, assumptions)
	case RuleReiterate:
		return checkReiterate(node, derived)
	case RuleImpElim:
		return checkImpElim(node, derived)
	case RuleAndIntro:
		return checkAndIntro(node, derived)
	case RuleAndElimL:
		return checkAndElimL(node, derived)
	case RuleAndElimR:
		return checkAndElimR(node, derived)
	case RuleOrIntroL:
		return checkOrIntroL(node, derived)
	case RuleOrIntroR:
		return checkOrIntroR(node, derived)
	case RuleNotElim:
		return checkNotElim(node, derived)
	case RuleEqRefl:
		return checkEqRefl(node)
	case RuleEqSymm:
		return checkEqSymm(node, derived)
	case RuleEqTrans:
		return checkEqTrans(node, derived)
	case RuleEqSubstPred:
		return checkEqSubstPred(node, derived)
	default:
		// Unknown rule: fail closed.
		return false
	}
}

func isSupportedRuleset(id string) bool {
	for _, r := range SupportedRulesets {
		if r == id {
			return true
		}
	}
	return false
}

// Check is the trusted PWK kernel entry point. It never panics on
// malformed input — every failure path returns a Result with Passed
// false, fail-closed.
func Check(pwof ProofObject) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Passed: false, Message: fmt.Sprintf("kernel error: %v", r)}
		}
	}()

	if pwof.PWOFVersion != PWOFVersion {
		return Result{Passed: false, Message: fmt.Sprintf("unsupported pwof_version: %s", pwof.PWOFVersion)}
	}
	if !isSupportedRuleset(pwof.RulesetID) {
		return Result{Passed: false, Message: fmt.Sprintf("unsupported ruleset_id: %s", pwof.RulesetID)}
	}

	nodes := pwof.Proof.Nodes
	conclusionID := pwof.Proof.Conclusion

	if len(nodes) == 0 {
		return Result{Passed: false, Message: "proof has no nodes"}
	}
	if conclusionID == "" {
		return Result{Passed: false, Message: "no conclusion specified"}
	}

	assumptions := pwof.Context.Assumptions
	goalFormula := pwof.Goal.Formula

	derived := make(map[string]Formula, len(nodes))
	rulesUsed := make([]string, 0, len(nodes))

	for _, node := range nodes {
		for _, premiseID := range node.Premises {
			if _, ok := derived[premiseID]; !ok {
				return Result{Passed: false, Message: fmt.Sprintf("node %s: unresolved premise %s", node.NodeID, premiseID)}
			}
		}
		if !checkRule(node, assumptions, derived) {
			return Result{Passed: false, Message: fmt.Sprintf("node %s: invalid %s application", node.NodeID, node.Rule)}
		}
		derived[node.NodeID] = node.Formula
		rulesUsed = append(rulesUsed, node.Rule)
	}

	conclusionFormula, ok := derived[conclusionID]
	if !ok {
		return Result{Passed: false, Message: fmt.Sprintf("conclusion node %s not found", conclusionID)}
	}
	if !formulasEqual(conclusionFormula, goalFormula) {
		return Result{Passed: false, Message: "conclusion does not match goal formula"}
	}

	return Result{Passed: true, Message: "proof verified", NodeCount: len(nodes), RulesUsed: rulesUsed}
}
