package proofweave

import "testing"

func modusPonens() ProofObject {
	p := AtomFormula("P", nil)
	q := AtomFormula("Q", nil)
	pImpQ := ImpFormula(p, q)

	return ProofObject{
		PWOFVersion: PWOFVersion,
		RulesetID:   "PWK_ND_PROP_EQ_v1",
		Context:     ProofContext{Assumptions: []Formula{p, pImpQ}},
		Goal:        ProofGoal{Formula: q},
		Proof: ProofBody{
			Nodes: []ProofNode{
				{NodeID: "n1", Rule: string(RuleAssume), Premises: nil, Formula: p},
				{NodeID: "n2", Rule: string(RuleAssume), Premises: nil, Formula: pImpQ},
				{NodeID: "n3", Rule: string(RuleImpElim), Premises: []string{"n1", "n2"}, Formula: q},
			},
			Conclusion: "n3",
		},
	}
}

func TestCheckModusPonensPasses(t *testing.T) {
	result := Check(modusPonens())
	if !result.Passed {
		t.Fatalf("expected proof to pass, got: %s", result.Message)
	}
	if result.NodeCount != 3 {
		t.Fatalf("expected 3 nodes, got %d", result.NodeCount)
	}
	if len(result.RulesUsed) != 3 {
		t.Fatalf("expected 3 rules used, got %v", result.RulesUsed)
	}
}

func TestCheckEqTransChain(t *testing.T) {
	a, b, c := VarTerm("a"), VarTerm("b"), VarTerm("c")
	ab := EqFormula(a, b)
	bc := EqFormula(b, c)
	ac := EqFormula(a, c)

	pwof := ProofObject{
		PWOFVersion: PWOFVersion,
		RulesetID:   "PWK_ND_PROP_EQ_v1",
		Context:     ProofContext{Assumptions: []Formula{ab, bc}},
		Goal:        ProofGoal{Formula: ac},
		Proof: ProofBody{
			Nodes: []ProofNode{
				{NodeID: "n1", Rule: string(RuleAssume), Formula: ab},
				{NodeID: "n2", Rule: string(RuleAssume), Formula: bc},
				{NodeID: "n3", Rule: string(RuleEqTrans), Premises: []string{"n1", "n2"}, Formula: ac},
			},
			Conclusion: "n3",
		},
	}

	result := Check(pwof)
	if !result.Passed {
		t.Fatalf("expected EQ_TRANS proof to pass, got: %s", result.Message)
	}
}

func TestCheckEqSymmAndRefl(t *testing.T) {
	a, b := VarTerm("a"), VarTerm("b")
	ab := EqFormula(a, b)
	ba := EqFormula(b, a)
	aa := EqFormula(a, a)

	pwof := ProofObject{
		PWOFVersion: PWOFVersion,
		RulesetID:   "PWK_ND_PROP_EQ_v1",
		Context:     ProofContext{Assumptions: []Formula{ab}},
		Goal:        ProofGoal{Formula: ba},
		Proof: ProofBody{
			Nodes: []ProofNode{
				{NodeID: "r1", Rule: string(RuleEqRefl), Formula: aa},
				{NodeID: "n1", Rule: string(RuleAssume), Formula: ab},
				{NodeID: "n2", Rule: string(RuleEqSymm), Premises: []string{"n1"}, Formula: ba},
			},
			Conclusion: "n2",
		},
	}

	result := Check(pwof)
	if !result.Passed {
		t.Fatalf("expected EQ_SYMM proof to pass, got: %s", result.Message)
	}
}

func TestCheckRejectsUnresolvedPremise(t *testing.T) {
	pwof := modusPonens()
	pwof.Proof.Nodes[2].Premises = []string{"n1", "does-not-exist"}

	result := Check(pwof)
	if result.Passed {
		t.Fatal("expected failure for unresolved premise")
	}
}

func TestCheckRejectsUnsupportedVersion(t *testing.T) {
	pwof := modusPonens()
	pwof.PWOFVersion = "2"

	result := Check(pwof)
	if result.Passed {
		t.Fatal("expected failure for unsupported pwof_version")
	}
}

func TestCheckRejectsUnsupportedRuleset(t *testing.T) {
	pwof := modusPonens()
	pwof.RulesetID = "SOME_OTHER_RULESET"

	result := Check(pwof)
	if result.Passed {
		t.Fatal("expected failure for unsupported ruleset_id")
	}
}

func TestCheckRejectsConclusionNotMatchingGoal(t *testing.T) {
	pwof := modusPonens()
	pwof.Goal.Formula = AtomFormula("R", nil)

	result := Check(pwof)
	if result.Passed {
		t.Fatal("expected failure when conclusion does not match goal")
	}
}

func TestCheckRejectsUnknownRule(t *testing.T) {
	pwof := modusPonens()
	pwof.Proof.Nodes[0].Rule = "MADE_UP_RULE"

	result := Check(pwof)
	if result.Passed {
		t.Fatal("expected failure for unknown rule")
	}
}

func TestCheckRejectsMissingConclusionNode(t *testing.T) {
	pwof := modusPonens()
	pwof.Proof.Conclusion = "not-a-node"

	result := Check(pwof)
	if result.Passed {
		t.Fatal("expected failure for missing conclusion node")
	}
}

func TestCheckAndIntroAndElim(t *testing.T) {
	p := AtomFormula("P", nil)
	q := AtomFormula("Q", nil)
	pq := AndFormula(p, q)

	pwof := ProofObject{
		PWOFVersion: PWOFVersion,
		RulesetID:   "PWK_ND_PROP_EQ_v1",
		Context:     ProofContext{Assumptions: []Formula{p, q}},
		Goal:        ProofGoal{Formula: p},
		Proof: ProofBody{
			Nodes: []ProofNode{
				{NodeID: "n1", Rule: string(RuleAssume), Formula: p},
				{NodeID: "n2", Rule: string(RuleAssume), Formula: q},
				{NodeID: "n3", Rule: string(RuleAndIntro), Premises: []string{"n1", "n2"}, Formula: pq},
				{NodeID: "n4", Rule: string(RuleAndElimL), Premises: []string{"n3"}, Formula: p},
			},
			Conclusion: "n4",
		},
	}

	result := Check(pwof)
	if !result.Passed {
		t.Fatalf("expected AND_INTRO/AND_ELIM_L proof to pass, got: %s", result.Message)
	}
}
