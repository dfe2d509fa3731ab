package presenter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/toolgate/pkg/presenter"
	"github.com/aretw0/toolgate/pkg/response"
	"github.com/aretw0/toolgate/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *response.Response) any {
	t.Helper()
	var out any
	require.NoError(t, json.Unmarshal([]byte(resp.Data()), &out))
	return out
}

func TestMake_LateGuillotine(t *testing.T) {
	p := presenter.New("pair",
		presenter.WithSchema(schema.New(
			schema.Required("a", schema.Int()),
			schema.Required("b", schema.Int()),
		)),
		presenter.WithRulesFunc(func(ctx context.Context, data any) []string {
			return []string{fmt.Sprintf("b=%v", data.(map[string]any)["b"])}
		}),
	)

	b, err := p.Make(context.Background(), map[string]any{"a": 1, "b": 2}, presenter.Select("a"))
	require.NoError(t, err)
	resp := b.Build()

	assert.JSONEq(t, `{"a":1}`, resp.Data())
	assert.Equal(t, []string{"[DOMAIN RULES]:\n- b=2"}, resp.Find(response.KindRules))
}

func TestMake_SelectionFromContext(t *testing.T) {
	p := presenter.New("pair")
	ctx := presenter.WithSelection(context.Background(), []string{"b", "missing"})

	b, err := p.Make(ctx, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	resp := b.Build()
	assert.JSONEq(t, `{"b":2}`, resp.Data())
	assert.Equal(t, []string{"[SELECTION]: Unknown field(s) ignored: missing."}, resp.Find(response.KindNotice))

	b, err = p.Make(ctx, map[string]any{"a": 1, "b": 2}, presenter.Select("nope"))
	require.NoError(t, err)
	resp = b.Build()
	assert.JSONEq(t, `{"a":1,"b":2}`, resp.Data(), "no valid field keeps the full data")
	require.Len(t, resp.Find(response.KindNotice), 1)
	assert.Contains(t, resp.Find(response.KindNotice)[0], "nope")
	assert.Contains(t, resp.Find(response.KindNotice)[0], "all fields were returned")
}

func TestMake_KnownSelectionHasNoNotice(t *testing.T) {
	p := presenter.New("pair")

	b, err := p.Make(context.Background(), map[string]any{"a": 1, "b": 2}, presenter.Select("a", "b"))
	require.NoError(t, err)
	assert.Empty(t, b.Build().Find(response.KindNotice))
}

func TestMake_TruncatesCollections(t *testing.T) {
	p := presenter.New("items",
		presenter.WithSchema(schema.New(schema.Required("id", schema.Int()))),
		presenter.WithTruncation(50, nil),
	)
	items := make([]any, 120)
	for i := range items {
		items[i] = map[string]any{"id": i}
	}

	b, err := p.Make(context.Background(), items)
	require.NoError(t, err)
	resp := b.Build()

	assert.Len(t, decode(t, resp).([]any), 50)
	notices := resp.Find(response.KindNotice)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "70 more were omitted")
	assert.Equal(t, response.KindNotice, resp.Segments[1].Kind, "overflow notice comes first")
}

func TestMake_StripsUndeclaredFields(t *testing.T) {
	p := presenter.New("user", presenter.WithSchema(schema.New(
		schema.Required("id", schema.Int()),
		schema.Optional("name", schema.String()),
	)))

	b, err := p.Make(context.Background(), map[string]any{"id": 1, "name": "ana", "password_hash": "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"ana"}`, b.Build().Data())
}

func TestMake_ValidationError(t *testing.T) {
	p := presenter.New("user", presenter.WithSchema(schema.New(schema.Required("id", schema.Int()))))

	_, err := p.Make(context.Background(), []any{
		map[string]any{"id": 1},
		map[string]any{"id": "two"},
	})

	var ve *presenter.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "user", ve.Presenter)
	assert.Equal(t, 1, ve.Index)
	require.Len(t, ve.Details(), 1)
	assert.Contains(t, ve.Details()[0], "[1] id:")
	assert.True(t, presenter.IsValidationError(err))
}

func TestMake_Redaction(t *testing.T) {
	p := presenter.New("account",
		presenter.WithRedaction("password", "owner.email", "tokens[*]", "history[0].ip"),
		presenter.WithRulesFunc(func(ctx context.Context, data any) []string {
			return []string{"owner=" + data.(map[string]any)["owner"].(map[string]any)["email"].(string)}
		}),
	)
	data := map[string]any{
		"password": "hunter2",
		"owner":    map[string]any{"email": "a@b.c", "name": "ana"},
		"tokens":   []any{"t1", "t2"},
		"history":  []any{map[string]any{"ip": "1.1.1.1"}, map[string]any{"ip": "2.2.2.2"}},
	}

	b, err := p.Make(context.Background(), data)
	require.NoError(t, err)
	resp := b.Build()

	assert.JSONEq(t, `{
		"password": "[REDACTED]",
		"owner": {"email": "[REDACTED]", "name": "ana"},
		"tokens": ["[REDACTED]", "[REDACTED]"],
		"history": [{"ip": "[REDACTED]"}, {"ip": "2.2.2.2"}]
	}`, resp.Data())
	assert.Contains(t, resp.Find(response.KindRules)[0], "owner=a@b.c", "rules see unredacted data")
	assert.Equal(t, "hunter2", data["password"], "input is not mutated")
}

func TestMake_RedactsEachCollectionItem(t *testing.T) {
	p := presenter.New("accounts", presenter.WithRedaction("*.secret"))

	b, err := p.Make(context.Background(), []any{
		map[string]any{"a": map[string]any{"secret": 1, "x": 2}},
		map[string]any{"b": map[string]any{"secret": 3}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a":{"secret":"[REDACTED]","x":2}},{"b":{"secret":"[REDACTED]"}}]`, b.Build().Data())
}

func TestCompile_InvalidRedactionPath(t *testing.T) {
	p := presenter.New("bad", presenter.WithRedaction("items[x]"))
	assert.Error(t, p.Compile())
	_, err := p.Make(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestLifecycle(t *testing.T) {
	p := presenter.New("x")
	assert.Equal(t, presenter.Building, p.State())

	require.NoError(t, p.Compile())
	assert.Equal(t, presenter.Compiled, p.State())

	require.NoError(t, p.Configure(presenter.WithRules("late rule")))
	assert.Equal(t, presenter.Building, p.State())

	_, err := p.Make(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, presenter.Sealed, p.State())

	err = p.Configure(presenter.WithRules("too late"))
	assert.ErrorIs(t, err, presenter.ErrSealed)
}

func TestMake_EmbedsAbsorbAuxiliaryBlocks(t *testing.T) {
	user := presenter.New("user",
		presenter.WithSchema(schema.New(schema.Required("name", schema.String()))),
		presenter.WithRules("Users are read-only here."),
	)
	task := presenter.New("task",
		presenter.WithSchema(schema.New(schema.Required("title", schema.String()))),
		presenter.WithEmbed("owner", user),
		presenter.WithRules("Complete tasks before deleting them."),
		presenter.WithSuggestions(func(ctx context.Context, item map[string]any) []response.Suggestion {
			return []response.Suggestion{{Action: "complete", Reason: "mark " + item["title"].(string) + " done"}}
		}),
	)

	b, err := task.Make(context.Background(), []any{
		map[string]any{"title": "one", "owner": map[string]any{"name": "ana"}},
		map[string]any{"title": "two", "owner": map[string]any{"name": "bia"}},
	})
	require.NoError(t, err)
	resp := b.Build()

	assert.JSONEq(t, `[{"title":"one"},{"title":"two"}]`, resp.Data(), "relation key is not in the parent schema")
	rules := resp.Find(response.KindRules)
	assert.Equal(t, []string{
		"[DOMAIN RULES]:\n- Users are read-only here.",
		"[DOMAIN RULES]:\n- Complete tasks before deleting them.",
	}, rules, "embedded blocks come first and are de-duplicated")
	suggestions := resp.Find(response.KindSuggestions)
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0], "mark one done")
}

func TestMake_UIAutoDetect(t *testing.T) {
	p := presenter.New("task",
		presenter.WithItemUI(func(ctx context.Context, item map[string]any) []response.UIBlock {
			return []response.UIBlock{response.Summary("one task")}
		}),
		presenter.WithCollectionUI(func(ctx context.Context, items []map[string]any) []response.UIBlock {
			return []response.UIBlock{response.Summary(fmt.Sprintf("%d tasks", len(items)))}
		}),
	)

	b, err := p.Make(context.Background(), map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Contains(t, b.Build().Find(response.KindUI)[0], "one task")

	b, err = p.Make(context.Background(), []any{map[string]any{"id": 1}, map[string]any{"id": 2}})
	require.NoError(t, err)
	assert.Contains(t, b.Build().Find(response.KindUI)[0], "2 tasks")
}

func TestMake_NormalizesStructs(t *testing.T) {
	type task struct {
		ID     int    `json:"id"`
		Title  string `json:"title"`
		Secret string `json:"secret"`
	}
	p := presenter.New("task", presenter.WithSchema(schema.New(
		schema.Required("id", schema.Int()),
		schema.Required("title", schema.String()),
	)))

	b, err := p.Make(context.Background(), []task{{ID: 1, Title: "a", Secret: "s"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"a"}]`, b.Build().Data())
}

func TestMake_EmptyRulesSuppressed(t *testing.T) {
	p := presenter.New("x", presenter.WithRulesFunc(func(ctx context.Context, data any) []string {
		return []string{"", "  "}
	}))
	b, err := p.Make(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, b.Build().Find(response.KindRules))
}

func TestParseSelection(t *testing.T) {
	got, err := presenter.ParseSelection([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = presenter.ParseSelection("a, b,")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = presenter.ParseSelection([]any{"a", 1})
	assert.Error(t, err)
	_, err = presenter.ParseSelection(42)
	assert.Error(t, err)
}
