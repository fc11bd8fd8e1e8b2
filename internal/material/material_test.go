package material

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steel() Isotropic {
	return Isotropic{YoungModulus: 210e9, PoissonRatio: 0.3}
}

func carbonFiber() TransverselyIsotropic {
	return TransverselyIsotropic{E1: 230e9, E2: 15e9, G12: 24e9, Nu12: 0.2, Nu23: 0.4}
}

func TestMarshal_AddsDiscriminant(t *testing.T) {
	raw, err := Marshal(steel())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"isotropic","young_modulus":210e9,"poisson_ratio":0.3}`, string(raw))
}

func TestDecode_RoundTripsEveryType(t *testing.T) {
	rho := 1600.0
	models := []Elastic{
		steel(),
		carbonFiber(),
		Orthotropic{E1: 140e9, E2: 10e9, E3: 10e9, G12: 5e9, G13: 5e9, G23: 3.5e9, Nu12: 0.3, Nu13: 0.3, Nu23: 0.45, Density: &rho},
	}
	for _, m := range models {
		t.Run(string(m.Type()), func(t *testing.T) {
			raw, err := Marshal(m)
			require.NoError(t, err)
			got, err := Decode(raw)
			require.NoError(t, err)
			if diff := cmp.Diff(m, got); diff != "" {
				t.Errorf("decoded model mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		msg  string
	}{
		{"missing type", `{"young_modulus":1}`, "missing type"},
		{"unknown type", `{"type":"hyperelastic"}`, "unknown type"},
		{"foreign field", `{"type":"isotropic","young_modulus":1,"poisson_ratio":0.2,"e3":5}`, "unknown field"},
		{"poisson out of range", `{"type":"isotropic","young_modulus":1,"poisson_ratio":0.5}`, "poisson_ratio"},
		{"non positive modulus", `{"type":"transversely_isotropic","e1":0,"e2":1,"g12":1,"nu12":0.1,"nu23":0.1}`, "e1"},
		{"unstable ratio", `{"type":"transversely_isotropic","e1":1,"e2":4,"g12":1,"nu12":0.6,"nu23":0.1}`, "nu12"},
		{"not json", `nope`, "material"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	err := Orthotropic{}.Validate()
	require.Error(t, err)
	for _, field := range []string{"e1", "e2", "e3", "g12", "g13", "g23"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestBind(t *testing.T) {
	m, err := Bind("fiber", carbonFiber())
	require.NoError(t, err)
	assert.Equal(t, "fiber", m.Name)

	var props map[string]any
	require.NoError(t, json.Unmarshal(m.Properties, &props))
	assert.Equal(t, "transversely_isotropic", props["type"])

	_, err = Bind("bad", Isotropic{})
	assert.ErrorContains(t, err, `material "bad"`)
}
