// Package parser extracts schema declarations and references from raw file
// content.
//
// A schema file declares its identifier on the first non-empty line with the
// @schema marker, e.g.
//
//	@schema name=contact
//
// and references other schemas anywhere in the file with refn: tokens, e.g.
//
//	field owner refn:user
//	field tags [refn:tag]
//
// The parser is purely textual. Everything beyond the header and the refn:
// tokens is opaque domain content owned by the external build facade.
package parser

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/types"
)

// HeaderMarker is the token that must lead the identifier declaration.
const HeaderMarker = "@schema"

// refPattern matches refn:<token>. The token runs until whitespace or a
// closing bracket so array-typed declarations like [refn:tag] parse cleanly.
var refPattern = regexp.MustCompile(`refn:([^\s\]]+)`)

// Parser extracts schema metadata from file content.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads path and parses its content. I/O failures are reported as
// UnreadableFile, a missing declaration as MissingHeader.
func (p *Parser) ParseFile(path string) (*types.SchemaInfo, *errors.FileError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewUnreadableFile(path, err)
	}

	info, perr := p.Parse(path, string(content))
	if perr != nil {
		return nil, perr
	}

	if stat, err := os.Stat(path); err == nil {
		info.LastMod = stat.ModTime()
	} else {
		info.LastMod = time.Now()
	}
	return info, nil
}

// Parse extracts the declared identifier and all references from content.
// The path is carried through for error reporting and graph metadata.
func (p *Parser) Parse(path, content string) (*types.SchemaInfo, *errors.FileError) {
	name, ok := parseHeader(content)
	if !ok {
		return nil, errors.NewMissingHeader(path)
	}

	return &types.SchemaInfo{
		Name:         name,
		FilePath:     path,
		Dependencies: parseReferences(content),
	}, nil
}

// parseHeader finds the identifier on the first non-empty line. The line must
// contain the @schema marker followed by name=<identifier>; the identifier
// runs to the next whitespace with surrounding quotes stripped.
func parseHeader(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Only the first non-empty line may declare the identifier.
		markerIdx := strings.Index(trimmed, HeaderMarker)
		if markerIdx < 0 {
			return "", false
		}

		rest := trimmed[markerIdx+len(HeaderMarker):]
		nameIdx := strings.Index(rest, "name=")
		if nameIdx < 0 {
			return "", false
		}

		value := rest[nameIdx+len("name="):]
		if cut := strings.IndexAny(value, " \t"); cut >= 0 {
			value = value[:cut]
		}
		value = strings.Trim(value, `"'`)
		if value == "" {
			return "", false
		}
		return value, true
	}
	return "", false
}

// parseReferences collects every refn: token in occurrence order. Duplicates
// are preserved; downstream consumers tolerate repeated edges.
func parseReferences(content string) []string {
	matches := refPattern.FindAllStringSubmatch(content, -1)
	refs := make([]string, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, match[1])
	}
	return refs
}
