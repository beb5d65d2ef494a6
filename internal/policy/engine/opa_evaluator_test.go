package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const operatorAllowList = `package otprelay.responder

default allow := false

allowed_operators := {"U1", "ou_1"}

allow if {
	allowed_operators[input.operator.id]
}

allow if {
	input.project.full_name == "acme/open"
}
`

func TestOPAEvaluator_DefaultAllows(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	ok, err := e.AllowResponder(ctx, ResponderInput{ProjectID: "p1", OperatorID: "anyone"})
	if err != nil || !ok {
		t.Errorf("AllowResponder = %v, %v; want true, nil", ok, err)
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, operatorAllowList)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	testCases := []struct {
		name string
		in   ResponderInput
		want bool
	}{
		{"listed slack operator", ResponderInput{RepoOwner: "acme", RepoName: "widgets", OperatorID: "U1"}, true},
		{"listed feishu operator", ResponderInput{RepoOwner: "acme", RepoName: "widgets", OperatorID: "ou_1"}, true},
		{"unlisted operator", ResponderInput{RepoOwner: "acme", RepoName: "widgets", OperatorID: "U2"}, false},
		{"open project", ResponderInput{RepoOwner: "acme", RepoName: "open", OperatorID: "U2"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.AllowResponder(ctx, tc.in)
			if err != nil {
				t.Fatalf("AllowResponder: %v", err)
			}
			if got != tc.want {
				t.Errorf("AllowResponder = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOPAEvaluator_UndefinedAllowDenies(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "package otprelay.responder\n\nallow if { input.operator.id == \"U1\" }\n")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	ok, err := e.AllowResponder(ctx, ResponderInput{OperatorID: "U2"})
	if err != nil || ok {
		t.Errorf("AllowResponder = %v, %v; want false, nil", ok, err)
	}
}

func TestNewOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\n\nallow if {"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestLoadOPAEvaluator(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "responder.rego")
	if err := os.WriteFile(path, []byte(operatorAllowList), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := LoadOPAEvaluator(ctx, path)
	if err != nil {
		t.Fatalf("LoadOPAEvaluator: %v", err)
	}
	if ok, _ := e.AllowResponder(ctx, ResponderInput{OperatorID: "U9"}); ok {
		t.Error("unlisted operator should be denied by the loaded policy")
	}

	if _, err := LoadOPAEvaluator(ctx, filepath.Join(t.TempDir(), "missing.rego")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := LoadOPAEvaluator(ctx, ""); err != nil {
		t.Errorf("empty path should use the default policy: %v", err)
	}
}
