package catalogs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestShippedConfigsMatchSchemas(t *testing.T) {
	root := findRepoRoot(t)

	cases := []struct {
		config string
		schema string
	}{
		{"actions.json", "actions.schema.json"},
		{"spirits.json", "spirits.schema.json"},
		{"items.json", "items.schema.json"},
		{"leveling.json", "leveling.schema.json"},
	}
	for _, tc := range cases {
		schema, err := jsonschema.Compile(filepath.Join(root, "schemas", tc.schema))
		if err != nil {
			t.Fatalf("compile %s: %v", tc.schema, err)
		}
		raw, err := os.ReadFile(filepath.Join(root, "configs", tc.config))
		if err != nil {
			t.Fatalf("read %s: %v", tc.config, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.config, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("%s does not match %s: %v", tc.config, tc.schema, err)
		}
	}
}

func TestActionSchemaRejectsTypos(t *testing.T) {
	root := findRepoRoot(t)
	schema, err := jsonschema.Compile(filepath.Join(root, "schemas", "actions.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	bad := map[string]string{
		"unknown field":  `[{"id":"a1","cooldown":6}]`,
		"missing id":     `[{"label":"Nameless"}]`,
		"xp at cap":      `[{"id":"a1","xp_gain01":1.0}]`,
		"zero cost":      `[{"id":"a1","cost":{"item":"incense","count":0}}]`,
		"bare cost item": `[{"id":"a1","cost":{"item":"incense"}}]`,
	}
	for name, body := range bad {
		var v any
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if err := schema.Validate(v); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLevelingSchemaRequiresRewardLevel(t *testing.T) {
	root := findRepoRoot(t)
	schema, err := jsonschema.Compile(filepath.Join(root, "schemas", "leveling.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var v any
	_ = json.Unmarshal([]byte(`{"level_cap":5,"rewards":[{"serenity_delta":0.1}]}`), &v)
	if err := schema.Validate(v); err == nil {
		t.Fatalf("expected reward without level to fail validation")
	}

	_ = json.Unmarshal([]byte(`{"level_cap":5,"default_reward":{"serenity_delta":0.1}}`), &v)
	if err := schema.Validate(v); err != nil {
		t.Fatalf("default reward without level should pass: %v", err)
	}
}
