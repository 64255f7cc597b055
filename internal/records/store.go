package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/roach88/swirl/internal/ir"
)

// filePattern matches record file names. Anything else in the directory is
// ignored.
var filePattern = regexp.MustCompile(`^(package|macro)\.[A-Za-z0-9_]*[A-Za-z0-9]\.json$`)

// idPattern is the id part of filePattern.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_]*[A-Za-z0-9]$`)

// IsRecordFile reports whether name, a base file name, is a record file.
func IsRecordFile(name string) bool {
	return filePattern.MatchString(name)
}

// ValidID reports whether id can name a record file.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// InvalidIDError reports an id that cannot name a record file.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid record id %q", e.ID)
}

// IsInvalidID returns true if err is an InvalidIDError.
func IsInvalidID(err error) bool {
	var ie *InvalidIDError
	return errors.As(err, &ie)
}

// MalformedRecordError reports a record file that could not be parsed or
// does not satisfy the record schema.
type MalformedRecordError struct {
	Path string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s: %v", e.Path, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if err is a MalformedRecordError.
func IsMalformed(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}

// Record is one loaded record file. Exactly one of Macro and Package is set,
// matching Kind.
type Record struct {
	Kind    ir.RecordKind
	Path    string
	Macro   *ir.Macro
	Package *ir.Package
}

// ID returns the id stored in the record.
func (r Record) ID() string {
	if r.Kind == ir.KindPackage && r.Package != nil {
		return r.Package.ID
	}
	if r.Macro != nil {
		return r.Macro.ID
	}
	return ""
}

// FileName returns the file name for a record of the given kind and id.
func FileName(kind ir.RecordKind, id string) string {
	return fmt.Sprintf("%s.%s.json", kind, id)
}

// Store reads and writes record files in a single directory.
type Store struct {
	dir string
}

// Open returns a store over dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the record directory.
func (s *Store) Dir() string {
	return s.dir
}

// path returns the file for a record, rejecting ids that would name
// anything but a record file in the store's directory.
func (s *Store) path(kind ir.RecordKind, id string) (string, error) {
	if !ValidID(id) {
		return "", &InvalidIDError{ID: id}
	}
	return filepath.Join(s.dir, FileName(kind, id)), nil
}

// LoadAll reads every record file in filename order. Files that fail to
// load are returned as MalformedRecordErrors alongside the good records.
// The second return is nil only when every file loaded.
func (s *Store) LoadAll() ([]Record, []error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read record directory: %w", err)}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !filePattern.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var (
		recs []Record
		errs []error
	)
	for _, name := range names {
		rec, err := s.load(filepath.Join(s.dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}

// LoadEnvironment loads every record and partitions them into packages and
// macros. Malformed records are logged and skipped. The returned
// environment has no ID; the resolver assigns one.
func (s *Store) LoadEnvironment() (ir.Environment, error) {
	recs, errs := s.LoadAll()
	for _, err := range errs {
		if !IsMalformed(err) {
			return ir.Environment{}, err
		}
		slog.Warn("skipping record", "error", err)
	}

	env := ir.Environment{Packages: []ir.Package{}, Macros: []ir.Macro{}}
	for _, rec := range recs {
		switch rec.Kind {
		case ir.KindPackage:
			env.Packages = append(env.Packages, *rec.Package)
		case ir.KindMacro:
			env.Macros = append(env.Macros, *rec.Macro)
		}
	}
	slog.Debug("records loaded",
		"dir", s.dir,
		"packages", len(env.Packages),
		"macros", len(env.Macros),
		"skipped", len(errs))
	return env, nil
}

// load reads, schema-checks and decodes one record file.
func (s *Store) load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, &MalformedRecordError{Path: path, Err: err}
	}
	kind := ir.KindMacro
	if filePattern.FindStringSubmatch(filepath.Base(path))[1] == string(ir.KindPackage) {
		kind = ir.KindPackage
	}
	rec, err := decode(kind, data, path)
	if err != nil {
		return Record{}, &MalformedRecordError{Path: path, Err: err}
	}
	return rec, nil
}

func decode(kind ir.RecordKind, data []byte, path string) (Record, error) {
	if !json.Valid(data) {
		return Record{}, fmt.Errorf("invalid JSON")
	}
	if err := CheckSchema(kind, data, filepath.Base(path)); err != nil {
		return Record{}, err
	}

	rec := Record{Kind: kind, Path: path}
	switch kind {
	case ir.KindPackage:
		var p ir.Package
		if err := json.Unmarshal(data, &p); err != nil {
			return Record{}, err
		}
		rec.Package = &p
	default:
		var m ir.Macro
		if err := json.Unmarshal(data, &m); err != nil {
			return Record{}, err
		}
		rec.Macro = &m
	}
	if rec.ID() == "" {
		return Record{}, fmt.Errorf("record has no id")
	}
	return rec, nil
}

// Read loads the record of the given kind and id. A missing record returns
// an error matching fs.ErrNotExist.
func (s *Store) Read(kind ir.RecordKind, id string) (Record, error) {
	path, err := s.path(kind, id)
	if err != nil {
		return Record{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Record{}, fmt.Errorf("read %s: %w", FileName(kind, id), err)
	}
	return s.load(path)
}

// ReadMacro loads a macro record by id.
func (s *Store) ReadMacro(id string) (ir.Macro, error) {
	rec, err := s.Read(ir.KindMacro, id)
	if err != nil {
		return ir.Macro{}, err
	}
	return *rec.Macro, nil
}

// Exists reports whether a record file exists. Invalid ids never exist.
func (s *Store) Exists(kind ir.RecordKind, id string) bool {
	path, err := s.path(kind, id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// WriteMacro writes m to macro.<id>.json.
func (s *Store) WriteMacro(m ir.Macro) error {
	if m.ID == "" {
		return fmt.Errorf("write macro %q: empty id", m.Name)
	}
	path, err := s.path(ir.KindMacro, m.ID)
	if err != nil {
		return fmt.Errorf("write macro %q: %w", m.Name, err)
	}
	if m.Variables == nil {
		m.Variables = []string{}
	}
	return s.write(path, m)
}

// WritePackage writes p to package.<id>.json.
func (s *Store) WritePackage(p ir.Package) error {
	if p.ID == "" {
		return fmt.Errorf("write package %q: empty id", p.Name)
	}
	path, err := s.path(ir.KindPackage, p.ID)
	if err != nil {
		return fmt.Errorf("write package %q: %w", p.Name, err)
	}
	return s.write(path, p)
}

// write marshals v to a temp file in the record directory and renames it
// over path.
func (s *Store) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install record: %w", err)
	}
	return nil
}

// Remove deletes a record file. A missing record returns an error matching
// fs.ErrNotExist.
func (s *Store) Remove(kind ir.RecordKind, id string) error {
	path, err := s.path(kind, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", FileName(kind, id), err)
	}
	return nil
}

// ReplaceMacro rewrites the macro record stored under oldID with m, then
// renames the file to m's id. A failed write leaves the old record intact.
func (s *Store) ReplaceMacro(oldID string, m ir.Macro) error {
	path, err := s.path(ir.KindMacro, oldID)
	if err != nil {
		return err
	}
	if !ValidID(m.ID) {
		return fmt.Errorf("write macro %q: %w", m.Name, &InvalidIDError{ID: m.ID})
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("replace %s: %w", FileName(ir.KindMacro, oldID), err)
	}
	if m.Variables == nil {
		m.Variables = []string{}
	}
	if err := s.write(path, m); err != nil {
		return err
	}
	return s.Rename(ir.KindMacro, oldID, m.ID)
}

// Rename moves a record file to the name for newID. It does not rewrite the
// id stored inside the file.
func (s *Store) Rename(kind ir.RecordKind, oldID, newID string) error {
	from, err := s.path(kind, oldID)
	if err != nil {
		return err
	}
	to, err := s.path(kind, newID)
	if err != nil {
		return err
	}
	if oldID == newID {
		return nil
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s: %w", FileName(kind, oldID), err)
	}
	return nil
}

// IsNotExist reports whether err means a record file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
