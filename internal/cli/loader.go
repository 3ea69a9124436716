package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/frontend"
	"github.com/roach88/querymodel/internal/parsing"
	"github.com/roach88/querymodel/internal/queryir"
	"github.com/roach88/querymodel/internal/store"
)

// Loaded is a query document and the model built from it.
type Loaded struct {
	Path     string
	Document *frontend.Document
	Model    *queryir.QueryModel
}

// LoadError is a failure to turn a document into a query model.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Line returns the 1-based line of the error, or 0 if unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadQuery reads the document at path, loads its sources and builds the
// query model. Relative file sources resolve against the document's
// directory; table sources need st.
func LoadQuery(ctx context.Context, fs afero.Fs, path string, st *store.Store) (*Loaded, error) {
	if _, err := fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing document: %v", err), Err: err}
	}

	doc, err := frontend.LoadDocument(fs, path)
	if err != nil {
		le := &LoadError{Code: ErrCodeDocument, Message: err.Error(), Err: err}
		var de *frontend.DocumentError
		if errors.As(err, &de) {
			le.Message, le.Pos = de.Message, de.Pos
		}
		return nil, le
	}

	env := frontend.Environment{Fs: fs, Dir: filepath.Dir(path), Store: st}
	q, err := doc.Query(ctx, env)
	if err != nil {
		return nil, buildError(err)
	}
	e, err := q.Build()
	if err != nil {
		return nil, buildError(err)
	}
	m, err := parsing.NewParser().Parse(e)
	if err != nil {
		return nil, buildError(err)
	}
	return &Loaded{Path: path, Document: doc, Model: m}, nil
}

// buildError classifies a failure after decoding: query errors are build
// errors, anything else is a problem with the document.
func buildError(err error) *LoadError {
	code := ErrCodeDocument
	if queryir.CodeOf(err) != "" {
		code = ErrCodeBuild
	}
	return &LoadError{Code: code, Message: err.Error(), Err: err}
}

// openStore opens the dataset database, or returns nil if path is empty.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDatabase, Message: err.Error(), Err: err}
	}
	return st, nil
}

// session is a loaded document together with the --db database it was
// loaded from, if any.
type session struct {
	*Loaded
	store *store.Store
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// load opens the --db database, if any, and loads the document at path.
// Callers close the session.
func (opts *RootOptions) load(cmd *cobra.Command, path string) (*session, error) {
	st, err := openStore(opts.DB)
	if err != nil {
		return nil, err
	}
	s := &session{store: st}
	if s.Loaded, err = LoadQuery(cmd.Context(), opts.filesystem(), path, st); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// failLoad reports a load error through f and returns the exit error.
func failLoad(f *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		return f.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	exit := ExitFailure
	if le.Code == ErrCodeNotFound || le.Code == ErrCodeDatabase {
		exit = ExitCommandError
	}
	var details any
	if line := le.Line(); line > 0 {
		details = map[string]any{"line": line}
	}
	if outErr := f.Error(le.Code, le.Message, details); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, le.Message, le.Err)
}
