package panel

import (
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer tokenizes panel scripts. Keywords are matched case-insensitively.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
})

// Script is a parsed panel script.
type Script struct {
	Name       string
	Statements []*Statement
}

type scriptFile struct {
	Statements []*Statement `@@*`
}

// Statement is one line of a script. Exactly one field is set.
type Statement struct {
	Pos lexer.Position

	Press   *int         `  "press" @Int`
	Release *int         `| "release" @Int`
	Clear   *int         `| "clear" @Int`
	Scan    *ScanStmt    `| @@`
	Set     *SetStmt     `| @@`
	Fail    bool         `| @"fail"`
	Expect  *Expectation `| "expect" @@`
}

// ScanStmt runs Count scans, one when omitted.
type ScanStmt struct {
	Count *int `"scan" @Int?`
}

// Scans returns the number of scans to run.
func (s *ScanStmt) Scans() int {
	if s.Count == nil {
		return 1
	}
	return *s.Count
}

// SetStmt configures a cell. Flags not listed are cleared.
type SetStmt struct {
	Cell  int      `"set" @Int`
	State string   `@Ident`
	Flags []string `@("toggle" | "change" | "hold")*`
}

// Expectation is the body of an expect statement.
type Expectation struct {
	State  *ExpectState  `  "state" @@`
	Lamp   *ExpectLamp   `| "lamp" @@`
	Events *ExpectEvents `| "events" @@`
	Scans  *int          `| "scans" @Int`
}

type ExpectState struct {
	Cell  int    `@Int`
	State string `@Ident`
}

type ExpectLamp struct {
	Cell int    `@Int`
	Lit  string `@("on" | "off")`
}

// ExpectEvents counts the events a cell produced during the last scan
// statement. Kind is "change", "hold" or empty for both.
type ExpectEvents struct {
	Kind  string `@("change" | "hold")?`
	Cell  int    `@Int`
	Count int    `@Int`
}

var scriptParser = participle.MustBuild[scriptFile](
	participle.Lexer(ScriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(2),
)

// ParseScript parses src. name is used in error positions.
func ParseScript(name, src string) (*Script, error) {
	f, err := scriptParser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("panel: parse error: %w", err)
	}
	return &Script{Name: name, Statements: f.Statements}, nil
}

// ReadScript parses a script from r.
func ReadScript(name string, r io.Reader) (*Script, error) {
	f, err := scriptParser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("panel: parse error: %w", err)
	}
	return &Script{Name: name, Statements: f.Statements}, nil
}
