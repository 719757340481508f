package cast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cueConfig = `
cast: {
	policy: "exclude"
	columns: {
		name:     {to: "fullName", transform: "upper"}
		age:      "years"
		internal: {exclude: true}
	}
}
`

func TestLoadCUE(t *testing.T) {
	cfg, err := LoadCUE(cueConfig)
	require.NoError(t, err)

	assert.Equal(t, Exclude, cfg.policy)
	assert.Equal(t, "fullName:eq(BOB)", applyOne(t, cfg, "name:eq(bob)"))
	assert.Equal(t, "years:gt(30)", applyOne(t, cfg, "age:gt(30)"))

	_, keep, err := cfg.ApplyNode(parse(t, "internal:eq(x)"))
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestLoadCUE_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"no cast section", `other: {}`},
		{"bad policy", `cast: {policy: "sometimes"}`},
		{"unknown transform", `cast: {columns: {a: {to: "b", transform: "rot13"}}}`},
		{"entry without target", `cast: {columns: {a: {transform: "upper"}}}`},
		{"unknown operator", `cast: {columns: {a: {to: "b", op: "matches"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCUE(tt.source)
			assert.Error(t, err)
		})
	}
}

const yamlConfigSource = `
policy: reject
columns:
  name: {to: fullName, transform: upper}
  age: years
  internal: {exclude: true}
`

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML([]byte(yamlConfigSource))
	require.NoError(t, err)

	assert.Equal(t, Reject, cfg.policy)
	assert.Equal(t, "fullName:eq(BOB)", applyOne(t, cfg, "name:eq(bob)"))
	assert.Equal(t, "years:gt(30)", applyOne(t, cfg, "age:gt(30)"))
}

func TestLoadYAML_ShorthandAndErrors(t *testing.T) {
	_, err := LoadYAML([]byte("columns:\n  a: {transform: upper}\n"))
	assert.Error(t, err, "mapping without a target is rejected")

	_, err = LoadYAML([]byte("policy: maybe\n"))
	assert.Error(t, err)

	_, err = LoadYAML([]byte(":::"))
	assert.Error(t, err)
}

func TestLoadCUE_OperatorOverride(t *testing.T) {
	cfg, err := LoadCUE(`cast: {columns: {signup: {to: "createdAt", op: "gte"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "createdAt:gte(2024-01-01)", applyOne(t, cfg, "signup:eq(2024-01-01)"))
}

func TestLoadRegistryCUE(t *testing.T) {
	reg, err := LoadRegistryCUE(`
mappings: {
	api:   {policy: "exclude", columns: {name: "fullName"}}
	admin: {columns: {name: {to: "fullName", transform: "upper"}}}
}
`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"api", "admin"}, reg.Names())

	api, err := reg.Lookup("api")
	require.NoError(t, err)
	assert.Equal(t, Exclude, api.policy)
	assert.Equal(t, "fullName:eq(bob)", applyOne(t, api, "name:eq(bob)"))

	admin, err := reg.Lookup("admin")
	require.NoError(t, err)
	assert.Equal(t, "fullName:eq(BOB)", applyOne(t, admin, "name:eq(bob)"))
}

func TestLoadRegistryYAML(t *testing.T) {
	reg, err := LoadRegistryYAML([]byte(`
mappings:
  api:
    columns:
      name: fullName
      signup: {to: createdAt, op: gte}
`))
	require.NoError(t, err)

	api, err := reg.Lookup("api")
	require.NoError(t, err)
	assert.Equal(t, "createdAt:gte(x)", applyOne(t, api, "signup:eq(x)"))

	_, err = LoadRegistryYAML([]byte("other: {}\n"))
	assert.Error(t, err, "missing mappings section")
}

func TestRegisterTransform(t *testing.T) {
	RegisterTransform("reverse", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	cfg, err := LoadYAML([]byte("columns:\n  name: {to: name, transform: reverse}\n"))
	require.NoError(t, err)
	assert.Equal(t, "name:eq(bob)", applyOne(t, cfg, "name:eq(bob)"))
	assert.Equal(t, "name:eq(dcba)", applyOne(t, cfg, "name:eq(abcd)"))
}
