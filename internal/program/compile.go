package program

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/awkward/internal/engine"
	"github.com/roach88/awkward/internal/field"
)

// Compile validates the program and builds an engine from it. All
// validation happens here; a compiled program cannot fail on a malformed
// selector at record time.
func (p *Program) Compile() (*engine.Engine, error) {
	spec, err := field.ParseSpec(p.FS)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", p.Name, err)
	}

	opts := []engine.Option{engine.WithSplitter(spec.Func())}
	if p.OFS != nil {
		opts = append(opts, engine.WithOFS(*p.OFS))
	}
	if p.ORS != nil {
		opts = append(opts, engine.WithORS(*p.ORS))
	}
	if p.NormalizeEOL {
		opts = append(opts, engine.WithNormalizedTerminators())
	}
	if p.NFC {
		opts = append(opts, engine.WithNFC())
	}
	eng := engine.New(opts...)

	if err := p.addHooks(eng); err != nil {
		return nil, fmt.Errorf("compile %s: %w", p.Name, err)
	}

	for i, rs := range p.Rules {
		label := rs.Name
		if label == "" {
			label = fmt.Sprintf("rule-%d", i+1)
		}
		if rs.When == nil {
			return nil, fmt.Errorf("compile %s: rule %s: missing when clause", p.Name, label)
		}
		cond, err := compileWhen(rs.When)
		if err != nil {
			return nil, fmt.Errorf("compile %s: rule %s: %w", p.Name, label, err)
		}
		if len(rs.Do) == 0 {
			eng.AddDefaultRule(cond).Named(label)
			continue
		}
		action, err := compileSteps(rs.Do, true)
		if err != nil {
			return nil, fmt.Errorf("compile %s: rule %s: %w", p.Name, label, err)
		}
		eng.AddRule(cond, engine.Action(action)).Named(label)
	}
	return eng, nil
}

func (p *Program) addHooks(eng *engine.Engine) error {
	for _, h := range []struct {
		name  string
		steps []Step
		add   func(engine.Hook)
	}{
		{"begin", p.Begin, eng.BeginJob},
		{"begin_file", p.BeginFile, eng.BeginSource},
		{"end_file", p.EndFile, eng.EndSource},
		{"end", p.End, eng.EndJob},
	} {
		if len(h.steps) == 0 {
			continue
		}
		hook, err := compileSteps(h.steps, false)
		if err != nil {
			return fmt.Errorf("%s: %w", h.name, err)
		}
		h.add(engine.Hook(hook))
	}
	return nil
}

func compileWhen(w *When) (engine.Condition, error) {
	set := w.selectors()
	if len(set) != 1 {
		if len(set) == 0 {
			return nil, fmt.Errorf("when clause selects nothing")
		}
		return nil, fmt.Errorf("when clause sets %s; exactly one selector allowed",
			strings.Join(set, " and "))
	}

	switch set[0] {
	case "always":
		return engine.Always(), nil
	case "find":
		return engine.Find(w.Find), nil
	case "find_any":
		return engine.FindAny(w.FindAny...), nil
	case "search":
		re, err := regexp.Compile(w.Search)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		return engine.Search(re), nil
	case "match":
		re, err := regexp.Compile(w.Match)
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		return engine.MatchStart(re), nil
	case "every":
		n := w.Every
		if n < 1 {
			return nil, fmt.Errorf("every: interval %d is not positive", n)
		}
		return func(c *engine.Context) (engine.Result, error) {
			if c.FNR()%n != 0 {
				return engine.NoMatch(), nil
			}
			return engine.Matched(c.FNR()), nil
		}, nil
	case "between":
		if w.Between.From == nil || w.Between.To == nil {
			return nil, fmt.Errorf("between: from and to are both required")
		}
		on, err := compileWhen(w.Between.From)
		if err != nil {
			return nil, fmt.Errorf("between from: %w", err)
		}
		off, err := compileWhen(w.Between.To)
		if err != nil {
			return nil, fmt.Errorf("between to: %w", err)
		}
		return engine.Between(on, off), nil
	}
	return nil, fmt.Errorf("unknown selector %q", set[0])
}

// compileSteps builds one function running the steps in order. inRule
// permits record access: emit, sum and "$n" print tokens are only legal
// inside a rule's do list.
func compileSteps(steps []Step, inRule bool) (func(*engine.Context) error, error) {
	var fns []func(*engine.Context) error
	for i, s := range steps {
		fn, err := compileStep(s, inRule)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		fns = append(fns, fn)
	}
	return func(c *engine.Context) error {
		for _, fn := range fns {
			if err := fn(c); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func compileStep(s Step, inRule bool) (func(*engine.Context) error, error) {
	var fns []func(*engine.Context) error

	if len(s.Set) > 0 {
		set := s.Set
		fns = append(fns, func(c *engine.Context) error {
			for k, v := range set {
				c.Vars()[k] = v
			}
			return nil
		})
	}
	if s.Emit {
		if !inRule {
			return nil, fmt.Errorf("emit outside a rule")
		}
		fns = append(fns, func(c *engine.Context) error { return c.Emit() })
	}
	if len(s.Print) > 0 {
		fn, err := compilePrint(s.Print, inRule)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	if s.Count != "" {
		name := s.Count
		fns = append(fns, func(c *engine.Context) error {
			c.Vars()[name] = varInt(c.Vars()[name]) + 1
			return nil
		})
	}
	if s.Sum != nil {
		if !inRule {
			return nil, fmt.Errorf("sum outside a rule")
		}
		if s.Sum.Var == "" {
			return nil, fmt.Errorf("sum: missing var")
		}
		if s.Sum.Field < 1 {
			return nil, fmt.Errorf("sum: field %d is not positive", s.Sum.Field)
		}
		name, idx := s.Sum.Var, s.Sum.Field
		fns = append(fns, func(c *engine.Context) error {
			raw, _ := c.Record().Field(idx)
			v, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			c.Vars()[name] = varFloat(c.Vars()[name]) + v
			return nil
		})
	}
	if len(s.Report) > 0 {
		names := s.Report
		fns = append(fns, func(c *engine.Context) error {
			for _, name := range names {
				if err := c.Print(fmt.Sprintf("%s=%v", name, varValue(c.Vars()[name]))); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if len(fns) == 0 {
		return nil, fmt.Errorf("step has no effect")
	}
	return func(c *engine.Context) error {
		for _, fn := range fns {
			if err := fn(c); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

var fieldRef = regexp.MustCompile(`^\$(0|[1-9][0-9]*|NF)$`)

func compilePrint(values []string, inRule bool) (func(*engine.Context) error, error) {
	type token struct {
		lit   string
		field int // -1 literal, 0 raw record, >0 field index
		nf    bool
	}
	toks := make([]token, len(values))
	for i, v := range values {
		m := fieldRef.FindStringSubmatch(v)
		if m == nil {
			toks[i] = token{lit: v, field: -1}
			continue
		}
		if !inRule {
			return nil, fmt.Errorf("print: %s outside a rule", v)
		}
		if m[1] == "NF" {
			toks[i] = token{field: -1, nf: true}
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("print: bad field reference %s", v)
		}
		toks[i] = token{field: n}
	}

	return func(c *engine.Context) error {
		out := make([]any, len(toks))
		for i, t := range toks {
			switch {
			case t.nf:
				out[i] = c.Record().NF()
			case t.field < 0:
				out[i] = t.lit
			case t.field == 0:
				out[i] = c.Record().Raw
			default:
				s, _ := c.Record().Field(t.field)
				out[i] = s
			}
		}
		return c.Print(out...)
	}, nil
}

// varInt coerces a variable to int64 for counting. YAML integers decode
// as int; anything non-integer restarts at zero.
func varInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func varFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// varValue formats integral floats without the trailing ".0" noise so a
// summed column of integers reports as an integer.
func varValue(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}
