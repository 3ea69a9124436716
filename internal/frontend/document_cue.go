package frontend

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

const schemaFilename = "<document schema>"

// documentSchema closes every struct of a CUE document, so misspelled
// fields fail the same way they do in YAML.
const documentSchema = `
#Column: {
	name: string
	type: =~"^(int|int32|int64|float64|string|bool)[?]?$"
}

#Source: {
	columns: [...#Column]
	rows?:   [...{...}]
	file?:   string
	table?:  string
}

#Step: {
	op:       string
	source?:  string
	args?:    [...(number | string | bool)]
	lambda?:  string
	lambdas?: [...string]
	type?:    string
}

#Document: {
	name: string
	from: string
	sources: [string]: #Source
	ops: [...#Step]
}
`

// DocumentError is a CUE document error with its source position.
type DocumentError struct {
	Message string
	Pos     token.Pos
}

func (e *DocumentError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

func parseCUE(name string, data []byte) (*Document, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(documentSchema, cue.Filename(schemaFilename))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("document schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueError(name, err)
	}
	v = schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(name, err)
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return nil, cueError(name, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &doc, nil
}

// cueError keeps the first error located in the document named name, with
// that position. Closedness errors also point into the schema; those
// positions are skipped unless nothing else is known.
func cueError(name string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	for _, e := range errs {
		for _, pos := range errors.Positions(e) {
			if pos.Filename() == name {
				return &DocumentError{Message: e.Error(), Pos: pos}
			}
		}
	}
	first := errs[0]
	de := &DocumentError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		de.Pos = positions[0]
	}
	return de
}
