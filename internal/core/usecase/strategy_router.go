package usecase

import (
	"strings"

	"github.com/ametelin/docqa/internal/core/domain"
)

// StrategyRouter resolves a question to a retrieval strategy and chain type
// from an ordered rule list. Routing is pure: no side effects beyond the
// configured rules and the input text.
type StrategyRouter struct {
	rules           []domain.RoutingRule
	defaultStrategy domain.Strategy
	alwaysRoute     bool
}

func NewStrategyRouter(rules []domain.RoutingRule, defaultStrategy domain.Strategy, alwaysRoute bool) *StrategyRouter {
	if defaultStrategy == "" {
		defaultStrategy = domain.StrategyVector
	}
	return &StrategyRouter{
		rules:           rules,
		defaultStrategy: defaultStrategy,
		alwaysRoute:     alwaysRoute,
	}
}

// ShouldRoute reports whether routing must run for the given caller overrides:
// either side explicitly requested "router", or routing is always on.
func (r *StrategyRouter) ShouldRoute(chain, strategy string) bool {
	if strings.EqualFold(chain, string(domain.ChainRouter)) {
		return true
	}
	if strings.EqualFold(strategy, string(domain.StrategyRouter)) {
		return true
	}
	return r.alwaysRoute
}

// Route tests each rule's keywords against the lower-cased question; the first
// rule with any matching keyword wins. Without a match the default rule
// (configured default strategy, standard chain) applies.
func (r *StrategyRouter) Route(question string) domain.RouteDecision {
	normalized := strings.ToLower(question)
	for _, rule := range r.rules {
		for _, keyword := range rule.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(normalized, strings.ToLower(keyword)) {
				return domain.RouteDecision{
					Rule:     rule.Name,
					Strategy: rule.Strategy,
					Chain:    rule.Chain,
				}
			}
		}
	}
	return domain.RouteDecision{
		Rule:     "default",
		Strategy: r.defaultStrategy,
		Chain:    domain.ChainStandard,
	}
}

// Keyword buckets for the caller-level strategy pick when routing was not
// invoked: code-flavored questions lean on the keyword index, business ones on
// hybrid retrieval.
var (
	codeKeywords     = []string{"code", "api", "function"}
	businessKeywords = []string{"business", "marketing", "product"}
)

// pickStrategyByKeywords is the non-routed fallback selection over two fixed
// keyword buckets.
func pickStrategyByKeywords(question string, defaultStrategy domain.Strategy) domain.Strategy {
	lowered := strings.ToLower(question)
	for _, keyword := range codeKeywords {
		if strings.Contains(lowered, keyword) {
			return domain.StrategyKeyword
		}
	}
	for _, keyword := range businessKeywords {
		if strings.Contains(lowered, keyword) {
			return domain.StrategyHybrid
		}
	}
	return defaultStrategy
}
