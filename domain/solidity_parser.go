package domain

import (
	"regexp"
	"strings"
)

// ContractParser extracts structural metadata and security pattern tags from
// raw contract source. It sits behind an interface so a grammar-based parser
// could replace the regex implementation without touching the pipeline.
type ContractParser interface {
	ExtractMetadata(content string) ContractMetadata
	IdentifySecurityPatterns(content string) []SecurityPatternTag
}

// SolidityParser is a regex-based ContractParser. It matches declaration
// syntax directly against the raw text with no nesting awareness and no
// handling of comments or string literals, so tokens inside those can be
// reported as declarations. Malformed input never produces an error, only
// empty results.
type SolidityParser struct {
	pragmaPattern   *regexp.Regexp
	importPattern   *regexp.Regexp
	contractPattern *regexp.Regexp
	functionPattern *regexp.Regexp
	modifierPattern *regexp.Regexp
	eventPattern    *regexp.Regexp

	securityPatterns map[SecurityPatternTag]*regexp.Regexp
}

// NewSolidityParser compiles the declaration and keyword-family patterns.
func NewSolidityParser() *SolidityParser {
	return &SolidityParser{
		pragmaPattern:   regexp.MustCompile(`pragma\s+solidity\s+([^;]+);`),
		importPattern:   regexp.MustCompile(`import\s+[^;]+;`),
		contractPattern: regexp.MustCompile(`(?s)contract\s+(\w+).*?\{`),
		functionPattern: regexp.MustCompile(`(?s)function\s+(\w+)\s*\([^)]*\)\s*(?:public|private|internal|external)?\s*(?:view|pure|payable)?\s*(?:returns\s*\([^)]*\))?\s*\{`),
		modifierPattern: regexp.MustCompile(`(?s)modifier\s+(\w+)\s*\([^)]*\)\s*\{`),
		eventPattern:    regexp.MustCompile(`event\s+(\w+)\s*\([^)]*\);`),
		securityPatterns: map[SecurityPatternTag]*regexp.Regexp{
			TagReentrancyGuard: regexp.MustCompile(`(?i)nonReentrant|ReentrancyGuard`),
			TagAccessControl:   regexp.MustCompile(`(?i)onlyOwner|onlyAdmin|require\s*\(\s*msg\.sender`),
			TagSafeMath:        regexp.MustCompile(`(?i)SafeMath|\.add\(|\.sub\(|\.mul\(|\.div\(`),
			TagExternalCalls:   regexp.MustCompile(`(?i)\.call\(|\.delegatecall\(|\.staticcall\(`),
			TagTimeDependency:  regexp.MustCompile(`(?i)block\.timestamp|now\s`),
			TagRandomness:      regexp.MustCompile(`(?i)block\.difficulty|blockhash\(`),
			TagOverflowChecks:  regexp.MustCompile(`(?i)require\s*\([^)]*\+|require\s*\([^)]*\-`),
		},
	}
}

// ExtractMetadata pulls pragma, imports and declaration names out of the
// source. Only the first pragma statement counts; imports are kept verbatim.
func (p *SolidityParser) ExtractMetadata(content string) ContractMetadata {
	meta := ContractMetadata{
		Imports:   []string{},
		Contracts: []string{},
		Functions: []string{},
		Modifiers: []string{},
		Events:    []string{},
	}

	if m := p.pragmaPattern.FindStringSubmatch(content); m != nil {
		meta.Pragma = strings.TrimSpace(m[1])
	}

	for _, imp := range p.importPattern.FindAllString(content, -1) {
		meta.Imports = append(meta.Imports, strings.TrimSpace(imp))
	}

	meta.Contracts = submatches(p.contractPattern, content)
	meta.Functions = submatches(p.functionPattern, content)
	meta.Modifiers = submatches(p.modifierPattern, content)
	meta.Events = submatches(p.eventPattern, content)

	return meta
}

// IdentifySecurityPatterns runs each keyword family against the source and
// returns the tags that matched. Tags are presence flags, not findings.
func (p *SolidityParser) IdentifySecurityPatterns(content string) []SecurityPatternTag {
	tags := []SecurityPatternTag{}
	for _, tag := range orderedTags {
		if p.securityPatterns[tag].MatchString(content) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// orderedTags fixes the output order so identical input always yields an
// identical tag sequence.
var orderedTags = []SecurityPatternTag{
	TagReentrancyGuard,
	TagAccessControl,
	TagSafeMath,
	TagExternalCalls,
	TagTimeDependency,
	TagRandomness,
	TagOverflowChecks,
}

func submatches(re *regexp.Regexp, content string) []string {
	names := []string{}
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if len(m) > 1 {
			names = append(names, m[1])
		}
	}
	return names
}
