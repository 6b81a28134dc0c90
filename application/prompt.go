package application

import (
	"fmt"
	"strings"
	"text/template"

	"solidity-audit-bot/domain"
)

// systemPrompt frames every completion request. It is the full instructional
// contract with the model; the Go side performs no security reasoning of its
// own.
const systemPrompt = `You are an expert Smart Contract Security Auditor with deep knowledge of Solidity, blockchain security, and common vulnerabilities. Your role is to help users analyze smart contracts for security issues, best practices, and potential improvements.

CORE CAPABILITIES:
1. Security Vulnerability Detection (Reentrancy, Integer Overflow/Underflow, Access Control, etc.)
2. Gas Optimization Analysis
3. Code Quality Assessment
4. Best Practices Recommendations
5. Compliance Checking (ERC standards, etc.)

AUDIT METHODOLOGY:
- Always provide specific line references when discussing code
- Categorize findings by severity: CRITICAL, HIGH, MEDIUM, LOW, INFORMATIONAL
- Explain the potential impact and exploitation scenarios
- Suggest specific remediation steps
- Consider both automated and manual testing approaches

RESPONSE FORMAT:
- Start with a brief summary of findings
- Provide detailed analysis with code references
- Include severity ratings and risk assessments
- Offer concrete remediation suggestions
- Mention relevant tools and testing strategies

SECURITY FOCUS AREAS:
- Reentrancy attacks and state changes
- Access control and authorization
- Integer arithmetic and overflow protection
- External call safety
- Randomness and timestamp dependencies
- Front-running and MEV considerations
- Gas limit and DoS vulnerabilities
- Upgrade patterns and proxy security

Always be thorough, precise, and educational in your responses. When analyzing provided contract code, reference specific functions, variables, and patterns you observe.`

// The instructional templates are fixed; user input and retrieved content
// are injected as template data, never parsed as template text, so brace
// sequences inside them cannot corrupt the template.
var (
	auditSystemTemplate = template.Must(template.New("audit_system").Parse(`{{.SystemPrompt}}

RELEVANT CONTRACT CONTEXT:
{{.Context}}

Based on the above context and your expertise, provide a comprehensive audit response to the user's query.`))

	auditUserTemplate = template.Must(template.New("audit_user").Parse(`User Query: {{.Query}}

Please analyze the provided smart contract context and address the user's specific question or concern.
Focus on security implications, best practices, and actionable recommendations.`))
)

// contextTokenBudget bounds how much retrieved context is interpolated into
// a single request, measured with the token counter.
const contextTokenBudget = 3000

// buildAuditMessages renders the system and user messages for a query. With
// no context the bare system prompt is used and the query is sent verbatim,
// so a degraded retrieval never blocks the conversation.
func buildAuditMessages(query, contractContext string) ([]domain.Message, error) {
	if contractContext == "" {
		return []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: query},
		}, nil
	}

	var sys strings.Builder
	err := auditSystemTemplate.Execute(&sys, map[string]string{
		"SystemPrompt": systemPrompt,
		"Context":      contractContext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render system template: %w", err)
	}

	var usr strings.Builder
	err = auditUserTemplate.Execute(&usr, map[string]string{
		"Query": query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render user template: %w", err)
	}

	return []domain.Message{
		{Role: domain.RoleSystem, Content: sys.String()},
		{Role: domain.RoleUser, Content: usr.String()},
	}, nil
}

// formatContext folds retrieved chunks into the prompt context block,
// stopping once the token budget is spent.
func formatContext(results []domain.SearchResult, counter *TokenCounter) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	used := 0
	for i, r := range results {
		functions := r.Chunk.Metadata.Functions
		if len(functions) > 5 {
			functions = functions[:5]
		}
		patterns := make([]string, len(r.Chunk.Patterns))
		for j, p := range r.Chunk.Patterns {
			patterns[j] = string(p)
		}

		part := fmt.Sprintf(`--- Contract Context %d ---
File: %s
Contracts: %s
Functions: %s
Security Patterns: %s

Code:
%s

`,
			i+1,
			r.Chunk.FilePath,
			strings.Join(r.Chunk.Metadata.Contracts, ", "),
			strings.Join(functions, ", "),
			strings.Join(patterns, ", "),
			r.Chunk.Content,
		)

		cost := counter.Count(part)
		if used+cost > contextTokenBudget && used > 0 {
			b.WriteString("... (omitting further context due to length limit)\n")
			break
		}
		b.WriteString(part)
		used += cost
	}

	return strings.TrimRight(b.String(), "\n")
}

// truncateRunes cuts s to at most n runes, appending an ellipsis marker when
// something was dropped.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
