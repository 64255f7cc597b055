package records

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/swirl/internal/ir"
)

//go:embed schema.cue
var schemaCUE []byte

// schema holds the compiled record definitions. A cue.Context is not safe
// for concurrent use, so checks are serialized.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[ir.RecordKind]cue.Value
}

var (
	schemaOnce   sync.Once
	sharedSchema *schema
	schemaErr    error
)

func loadSchema() (*schema, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("internal error: failed to compile record schema: %w", err)
			return
		}
		s := &schema{ctx: ctx, defs: map[ir.RecordKind]cue.Value{}}
		for kind, path := range map[ir.RecordKind]string{
			ir.KindMacro:   "#Macro",
			ir.KindPackage: "#Package",
		} {
			def := v.LookupPath(cue.ParsePath(path))
			if err := def.Err(); err != nil {
				schemaErr = fmt.Errorf("internal error: schema definition %s not found: %w", path, err)
				return
			}
			s.defs[kind] = def
		}
		sharedSchema = s
	})
	return sharedSchema, schemaErr
}

// CheckSchema validates raw record JSON against the schema for kind.
// JSON is valid CUE, so the bytes are compiled directly and unified with
// the definition.
func CheckSchema(kind ir.RecordKind, data []byte, filename string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.defs[kind]
	if !ok {
		return fmt.Errorf("unknown record kind %q", kind)
	}
	user := s.ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return formatError(err)
	}
	if err := def.Unify(user).Validate(cue.Concrete(true)); err != nil {
		return formatError(err)
	}
	return nil
}

// formatError flattens CUE errors into "path: message" lines.
func formatError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			lines = append(lines, path+": "+msg)
		} else {
			lines = append(lines, msg)
		}
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s", lines[0])
	}
	return fmt.Errorf("schema validation failed:\n  %s", strings.Join(lines, "\n  "))
}

// formatPath renders ["macros", "0", "name"] as "macros[0].name".
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
