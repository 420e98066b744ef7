package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// documentSchema is the shape of a history document: a list of closed
// two-element lists, a string name followed by an argument struct.
const documentSchema = `[...[string, {...}]]`

// ParseDocument validates and decodes a history document. name labels
// positions in error messages. Anything that is not a list of
// [string, object] pairs is a MALFORMED_HISTORY error.
func ParseDocument(name string, data []byte) (ir.History, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(documentSchema, cue.Filename("history-schema"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile history schema: %w", err)
	}

	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return nil, malformed(name, "document is not valid JSON", err)
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return nil, malformed(name, "document could not be built", err)
	}
	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return nil, malformed(name, "document must be a list of [name, arguments] pairs", err)
	}

	var h ir.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, malformed(name, "document entries could not be decoded", err)
	}
	return h, nil
}

// ReadDocument reads and parses the history document at path.
func ReadDocument(path string) (ir.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history document: %w", err)
	}
	return ParseDocument(path, data)
}

func malformed(path, msg string, err error) *physio.Error {
	return &physio.Error{
		Code:    physio.ErrCodeMalformedHistory,
		Message: msg,
		Path:    path,
		Err:     err,
	}
}
