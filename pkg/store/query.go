package store

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/models"
)

// queryVar is the name under which a record is visible to query expressions.
const queryVar = "m"

// queryCache compiles CEL expressions once and reuses the programs.
type queryCache struct {
	mu       sync.Mutex
	env      *cel.Env
	programs map[string]cel.Program
}

func newQueryCache() *queryCache {
	return &queryCache{programs: make(map[string]cel.Program)}
}

func (q *queryCache) program(expr string) (cel.Program, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if prg, ok := q.programs[expr]; ok {
		return prg, nil
	}

	if q.env == nil {
		env, err := cel.NewEnv(cel.Variable(queryVar, cel.MapType(cel.StringType, cel.DynType)))
		if err != nil {
			return nil, fmt.Errorf("failed to create query environment: %w", err)
		}
		q.env = env
	}

	ast, issues := q.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrInvalidQuery, issues.Err())
	}

	prg, err := q.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrInvalidQuery, err)
	}
	q.programs[expr] = prg

	return prg, nil
}

// Query returns the records of collection c for which the CEL expression
// evaluates to true. The record is available as the map "m" keyed by its
// wire field names, e.g.
//
//	m.is_active && m.username.startsWith("a")
//
// Records for which evaluation fails, typically because a referenced field
// is absent, do not match.
func (s *Store) Query(c models.Collection, expr string) ([]models.Model, error) {
	prg, err := s.query.program(expr)
	if err != nil {
		return nil, err
	}

	var out []models.Model
	for _, m := range s.GetAll(c) {
		fields, err := fieldMap(m)
		if err != nil {
			return nil, err
		}

		val, _, err := prg.Eval(map[string]any{queryVar: fields})
		if err != nil {
			s.logger.Debug("query evaluation failed", "key", models.KeyOf(m).String(), "error", err)
			continue
		}

		match, ok := val.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expression yields %T, not bool", constants.ErrInvalidQuery, val.Value())
		}
		if match {
			out = append(out, m)
		}
	}

	return out, nil
}

func fieldMap(m models.Model) (map[string]any, error) {
	c := codec.JSON()
	data, err := c.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", models.KeyOf(m), err)
	}
	fields := map[string]any{}
	if err := c.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", models.KeyOf(m), err)
	}
	return fields, nil
}
