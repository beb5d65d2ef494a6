package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.otprelay.responder.allow"

// DefaultPolicy lets any operator in the bound chat answer.
const DefaultPolicy = `package otprelay.responder

default allow := true
`

// OPAEvaluator evaluates the responder policy with OPA Rego. The policy is compiled once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy. An empty policy uses DefaultPolicy.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"responder.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile responder policy: %w", err)
	}
	pq, err := rego.New(rego.Query(allowQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare responder policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// LoadOPAEvaluator reads the policy from path. An empty path uses DefaultPolicy.
func LoadOPAEvaluator(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responder policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// AllowResponder evaluates the policy. An undefined or non-boolean allow denies.
func (e *OPAEvaluator) AllowResponder(ctx context.Context, in ResponderInput) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return false, fmt.Errorf("eval responder policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allow, ok := rs[0].Expressions[0].Value.(bool)
	return ok && allow, nil
}

// HealthCheck evaluates the loaded policy against a minimal input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(ResponderInput{})))
	if err != nil {
		return fmt.Errorf("eval responder policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

func buildInput(in ResponderInput) map[string]interface{} {
	return map[string]interface{}{
		"project": map[string]interface{}{
			"id":         in.ProjectID,
			"repo_owner": in.RepoOwner,
			"repo_name":  in.RepoName,
			"full_name":  in.RepoOwner + "/" + in.RepoName,
		},
		"platform": in.Platform,
		"request": map[string]interface{}{
			"id":         in.RequestID,
			"channel_id": in.ChannelID,
		},
		"operator": map[string]interface{}{
			"id": in.OperatorID,
		},
	}
}
