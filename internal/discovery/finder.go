package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/redditurl"
)

const finderSystemPrompt = "You find Reddit URLs about a product. " +
	"Use web search. Return only URLs on reddit.com (including www/old/new). " +
	"Prefer direct post/comment URLs. Avoid login pages and non-Reddit domains."

// FindCandidates asks a web-search-enabled provider for up to max Reddit
// URLs about product. An empty first answer is retried once with a broader
// prompt built from name variants.
func FindCandidates(ctx context.Context, provider llm.Provider, product string, max int) ([]string, error) {
	reply, err := provider.GenerateText(ctx, llm.Request{
		System: finderSystemPrompt,
		Prompt: candidatePrompt(product, max),
	})
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	urls := redditurl.Extract(reply)
	if len(urls) == 0 {
		reply, err = provider.GenerateText(ctx, llm.Request{
			System: finderSystemPrompt,
			Prompt: broadenedPrompt(product, max),
		})
		if err != nil {
			return nil, fmt.Errorf("find candidates (broadened): %w", err)
		}
		urls = redditurl.Extract(reply)
	}
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	return urls, nil
}

func candidatePrompt(product string, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find Reddit URLs where users discuss or mention the product \"%s\".\n\n", product)
	b.WriteString("Use web search queries like:\n")
	fmt.Fprintf(&b, "- site:reddit.com %s\n", product)
	fmt.Fprintf(&b, "- site:reddit.com (\"%s\" OR \"%s\")\n\n", product, strings.ReplaceAll(product, ".", " "))
	b.WriteString("Requirements:\n")
	b.WriteString("- Return only reddit.com URLs (including www/old/new).\n")
	b.WriteString("- Prefer /r/*/comments/* and direct discussion threads.\n")
	b.WriteString("- Do NOT invent URLs. Only return URLs that appear in actual web search results.\n")
	fmt.Fprintf(&b, "- Provide at least %d unique URLs if possible.\n\n", max)
	b.WriteString("Output as a plain list of URLs, one per line.")
	return b.String()
}

func broadenedPrompt(product string, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find Reddit URLs about the product \"%s\".\n\n", product)
	b.WriteString("You MUST use web search and return reddit.com URLs.\n")
	b.WriteString("Do NOT invent URLs.\n\n")
	b.WriteString("Try multiple queries and synonyms:\n")
	for _, q := range queryVariants(product) {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	fmt.Fprintf(&b, "\nReturn up to %d unique URLs, one per line. ", max)
	b.WriteString("If you truly find none, return an empty list.")
	return b.String()
}

// queryVariants spells the product name the ways people tend to write it.
func queryVariants(product string) []string {
	name := strings.TrimSpace(product)
	lower := strings.ToLower(name)
	base := lower
	if i := strings.LastIndex(lower, "."); i > 0 {
		base = lower[:i]
	}
	candidates := []string{
		lower,
		base + " ai",
		strings.ReplaceAll(lower, ".", " "),
		fmt.Sprintf("%q reddit", lower),
		"site:reddit.com " + lower,
	}
	if base != lower {
		candidates = append(candidates, base, fmt.Sprintf("%q reddit", base))
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
