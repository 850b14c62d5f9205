// Package transformers turns DoS services into organisation, location and
// healthcare service documents.
package transformers

import (
	"data-migration/domain/legacy"
	"data-migration/domain/migration"

	"go.uber.org/zap"
)

// Transformer converts one kind of DoS service.
type Transformer interface {
	Name() string

	// IsSupported reports whether the transformer handles the service at
	// all, with the reason when it does not.
	IsSupported(service *legacy.Service) (bool, string)

	// ShouldInclude is the finer filter applied once a transformer is
	// chosen, e.g. to leave out inactive services.
	ShouldInclude(service *legacy.Service) (bool, string)

	Validator() Validator

	// Transform maps a sanitised service to target entities. Any entity of
	// the result may be nil.
	Transform(service *legacy.Service, metadata *legacy.Metadata, logger *zap.Logger) (*migration.TransformResult, error)
}

// MatchKind is the outcome of choosing a transformer.
type MatchKind int

const (
	NoMatch MatchKind = iota
	OneMatch
	AmbiguousMatch
)

// Selection is the result of Select.
type Selection struct {
	Kind        MatchKind
	Transformer Transformer
	// Matches names every supporting transformer when the choice is
	// ambiguous.
	Matches []string
}

// Select finds the single transformer supporting service. Rejections are
// returned keyed by transformer name so the caller can log them.
func Select(registry []Transformer, service *legacy.Service) (Selection, map[string]string) {
	var matches []Transformer
	rejected := make(map[string]string)
	for _, t := range registry {
		ok, reason := t.IsSupported(service)
		if !ok {
			rejected[t.Name()] = reason
			continue
		}
		matches = append(matches, t)
	}

	switch len(matches) {
	case 0:
		return Selection{Kind: NoMatch}, rejected
	case 1:
		return Selection{Kind: OneMatch, Transformer: matches[0], Matches: []string{matches[0].Name()}}, rejected
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name())
		}
		return Selection{Kind: AmbiguousMatch, Matches: names}, rejected
	}
}
