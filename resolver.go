package goAuthz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TargetIDField is the path parameter and body field that addresses the
// account an ownership check compares against.
const TargetIDField = "id"

type resolverRegistry struct {
	funcs map[ResolverKind]ResolverFunc
}

func newResolverRegistry() *resolverRegistry {
	return &resolverRegistry{
		funcs: map[ResolverKind]ResolverFunc{
			ResolverNone:       resolveNone,
			ResolverOwnAccount: resolveOwnAccount,
		},
	}
}

func (r *resolverRegistry) register(kind ResolverKind, fn ResolverFunc) error {
	if strings.TrimSpace(string(kind)) == "" {
		return errors.New("resolver kind cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("resolver %q has nil func", kind)
	}
	if _, exists := r.funcs[kind]; exists {
		return fmt.Errorf("resolver %q already registered", kind)
	}
	r.funcs[kind] = fn
	return nil
}

func (r *resolverRegistry) lookup(kind ResolverKind) (ResolverFunc, error) {
	fn, ok := r.funcs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolver, kind)
	}
	return fn, nil
}

func (r *resolverRegistry) kinds() []ResolverKind {
	out := make([]ResolverKind, 0, len(r.funcs))
	for kind := range r.funcs {
		out = append(out, kind)
	}
	return out
}

func resolveNone(context.Context, Identity, Request) (bool, error) {
	return true, nil
}

// resolveOwnAccount passes when the request targets the caller's own id.
// Read-style requests carry the id in the path, all others in the JSON body.
// An id that cannot be read is a non-match, not an error.
func resolveOwnAccount(_ context.Context, identity Identity, req Request) (bool, error) {
	var (
		target int64
		ok     bool
	)
	if req.ReadStyle() {
		target, ok = targetFromParam(req)
	} else {
		target, ok = TargetFromBody(req.Body)
	}
	return ok && target == identity.ID, nil
}

func targetFromParam(req Request) (int64, bool) {
	raw, ok := req.Param(TargetIDField)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// TargetFromBody reads the "id" field of a JSON object body. The field may be
// a JSON integer or a string holding one.
func TargetFromBody(body []byte) (int64, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return 0, false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return 0, false
	}

	switch v := fields[TargetIDField].(type) {
	case json.Number:
		id, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return id, true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
