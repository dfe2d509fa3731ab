package presenter

import (
	"context"
	"fmt"

	"github.com/aretw0/toolgate/pkg/response"
	"github.com/aretw0/toolgate/pkg/schema"
)

// RulesFunc computes domain rules from the full validated data (a single
// object or a collection). Empty strings are dropped.
type RulesFunc func(ctx context.Context, data any) []string

// ItemUIFunc renders UI blocks for a single object.
type ItemUIFunc func(ctx context.Context, item map[string]any) []response.UIBlock

// CollectionUIFunc renders UI blocks for a collection.
type CollectionUIFunc func(ctx context.Context, items []map[string]any) []response.UIBlock

// SuggestFunc proposes follow-up actions. For collections it receives the
// first element.
type SuggestFunc func(ctx context.Context, item map[string]any) []response.Suggestion

// OverflowFunc renders the notice shown when a collection is truncated.
type OverflowFunc func(omitted, limit int) string

// DefaultOverflow reports the number of omitted items and how to get them.
func DefaultOverflow(omitted, limit int) string {
	return fmt.Sprintf("[SYSTEM NOTICE]: Showing the first %d items; %d more were omitted. "+
		"Use filters or pagination to narrow the result.", limit, omitted)
}

type embed struct {
	key   string
	child *Presenter
}

// config is the mutable descriptor edited while Building.
type config struct {
	schema       schema.Schema
	rules        []string
	rulesFunc    RulesFunc
	itemUI       ItemUIFunc
	collectionUI CollectionUIFunc
	suggest      SuggestFunc
	limit        int
	overflow     OverflowFunc
	redact       []string
	embeds       []embed
}

// Option configures a Presenter.
type Option func(*config)

// WithSchema sets the outgoing schema. Undeclared fields are stripped from
// every object before it leaves the presenter.
func WithSchema(s schema.Schema) Option {
	return func(c *config) {
		c.schema = s
	}
}

// WithRules appends static domain rules.
func WithRules(rules ...string) Option {
	return func(c *config) {
		c.rules = append(c.rules, rules...)
	}
}

// WithRulesFunc sets dynamic domain rules evaluated on the full data.
func WithRulesFunc(fn RulesFunc) Option {
	return func(c *config) {
		c.rulesFunc = fn
	}
}

// WithItemUI sets the UI provider for single objects.
func WithItemUI(fn ItemUIFunc) Option {
	return func(c *config) {
		c.itemUI = fn
	}
}

// WithCollectionUI sets the UI provider for collections.
func WithCollectionUI(fn CollectionUIFunc) Option {
	return func(c *config) {
		c.collectionUI = fn
	}
}

// WithSuggestions sets the action suggestion provider.
func WithSuggestions(fn SuggestFunc) Option {
	return func(c *config) {
		c.suggest = fn
	}
}

// WithTruncation caps collections at limit items. A nil notice uses
// DefaultOverflow.
func WithTruncation(limit int, notice OverflowFunc) Option {
	return func(c *config) {
		c.limit = limit
		c.overflow = notice
	}
}

// WithRedaction masks the values at the given paths in the outgoing data.
// Paths are relative to each object: "password", "owner.email",
// "tokens[*]", "history[0].ip", "*.secret".
func WithRedaction(paths ...string) Option {
	return func(c *config) {
		c.redact = append(c.redact, paths...)
	}
}

// WithEmbed declares a child relation: when key is present in the raw data,
// child presents its value and its auxiliary blocks are absorbed.
func WithEmbed(key string, child *Presenter) Option {
	return func(c *config) {
		c.embeds = append(c.embeds, embed{key: key, child: child})
	}
}

// MakeOption tunes a single Make call.
type MakeOption func(*makeOptions)

type makeOptions struct {
	selection    []string
	hasSelection bool
}

// Select restricts the outgoing data to the given top-level fields. It
// overrides any selection carried by the context. Unknown names are ignored
// and reported in a notice segment; if no name is known, every field is
// returned.
func Select(fields ...string) MakeOption {
	return func(o *makeOptions) {
		o.selection = fields
		o.hasSelection = true
	}
}
