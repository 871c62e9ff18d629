package passes

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/zjrosen/passflow/internal/domain/graph"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/log"
)

// Built-in kinds.
const (
	KindNoop        = "noop"
	KindFail        = "fail"
	KindAnnotate    = "annotate"
	KindRequireAttr = "require_attr"
	KindPrune       = "prune"
	KindStamp       = "stamp"
)

const (
	scopeGraph = "graph"
	scopeNode  = "node"
)

func newNoop(name string, _ Params) (pass.Pass, error) {
	return pass.Noop(name), nil
}

// with: {reason}
func newFail(name string, params Params) (pass.Pass, error) {
	reason, err := params.String("reason")
	if err != nil {
		return nil, err
	}
	return pass.Fail(name, reason), nil
}

// with: {key, value, op?}. Sets key on every node, or on nodes of op.
func newAnnotate(name string, params Params) (pass.Pass, error) {
	key, err := params.String("key")
	if err != nil {
		return nil, err
	}
	value, err := params.Value("value")
	if err != nil {
		return nil, err
	}
	op, err := params.StringOr("op", "")
	if err != nil {
		return nil, err
	}

	return pass.NewFunc(name, func(_ context.Context, m graph.Model) (pass.Outcome, error) {
		changed := 0
		for _, id := range matchNodes(m, op) {
			if cur, ok := m.Attr(id, key); ok && reflect.DeepEqual(cur, value) {
				continue
			}
			if err := m.SetAttr(id, key, value); err != nil {
				return pass.OutcomeNoOp, err
			}
			changed++
		}
		log.Debug(log.CatPass, "annotated nodes", "pass", name, "key", key, "changed", changed)
		return outcome(changed > 0), nil
	}), nil
}

// with: {key, scope?: graph|node, op?}. Fails when the attribute is absent.
func newRequireAttr(name string, params Params) (pass.Pass, error) {
	key, err := params.String("key")
	if err != nil {
		return nil, err
	}
	scope, err := params.StringOr("scope", scopeGraph)
	if err != nil {
		return nil, err
	}
	if err := oneOf("scope", scope, scopeGraph, scopeNode); err != nil {
		return nil, err
	}
	op, err := params.StringOr("op", "")
	if err != nil {
		return nil, err
	}

	return pass.NewFunc(name, func(_ context.Context, m graph.Model) (pass.Outcome, error) {
		if scope == scopeGraph {
			if _, ok := m.GraphAttr(key); !ok {
				return pass.OutcomeNoOp, &pass.FailedError{Pass: name, Reason: fmt.Sprintf("graph attribute %q is not set", key)}
			}
			return pass.OutcomeNoOp, nil
		}
		var missing []string
		for _, id := range matchNodes(m, op) {
			if _, ok := m.Attr(id, key); !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return pass.OutcomeNoOp, &pass.FailedError{
				Pass:   name,
				Reason: fmt.Sprintf("attribute %q missing on nodes %s", key, strings.Join(missing, ", ")),
			}
		}
		return pass.OutcomeNoOp, nil
	}), nil
}

// with: {op}. Bypasses every node of op.
func newPrune(name string, params Params) (pass.Pass, error) {
	op, err := params.String("op")
	if err != nil {
		return nil, err
	}

	return pass.NewFunc(name, func(_ context.Context, m graph.Model) (pass.Outcome, error) {
		ids := graph.NodesByOp(m, op)
		for _, id := range ids {
			if err := m.Bypass(id); err != nil {
				return pass.OutcomeNoOp, err
			}
		}
		if len(ids) > 0 {
			log.Debug(log.CatPass, "pruned nodes", "pass", name, "op", op, "nodes", strings.Join(ids, ","))
		}
		return outcome(len(ids) > 0), nil
	}), nil
}

// with: {key, value}. Sets a graph-level attribute.
func newStamp(name string, params Params) (pass.Pass, error) {
	key, err := params.String("key")
	if err != nil {
		return nil, err
	}
	value, err := params.Value("value")
	if err != nil {
		return nil, err
	}

	return pass.NewFunc(name, func(_ context.Context, m graph.Model) (pass.Outcome, error) {
		if cur, ok := m.GraphAttr(key); ok && reflect.DeepEqual(cur, value) {
			return pass.OutcomeNoOp, nil
		}
		m.SetGraphAttr(key, value)
		return pass.OutcomeTransformed, nil
	}), nil
}

func matchNodes(m graph.Model, op string) []string {
	if op == "" {
		return m.Nodes()
	}
	return graph.NodesByOp(m, op)
}

func outcome(changed bool) pass.Outcome {
	if changed {
		return pass.OutcomeTransformed
	}
	return pass.OutcomeNoOp
}
