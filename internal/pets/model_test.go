package pets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_SpeciesAlias(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"type only", `{"name":"Milo","type":"Dog"}`, "dog"},
		{"species only", `{"name":"Milo","species":"Cat"}`, "cat"},
		{"type wins", `{"name":"Milo","type":"rabbit","species":"cat"}`, "rabbit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var in Input
			require.NoError(t, json.Unmarshal([]byte(tc.body), &in))
			var p Pet
			in.apply(&p)
			assert.Equal(t, "Milo", p.Name)
			assert.Equal(t, tc.want, p.Type)
		})
	}
}

func TestInput_ApplyKeepsUnsetFields(t *testing.T) {
	age := 4
	p := Pet{Name: "Milo", Type: "dog", Breed: "beagle", Age: &age}
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"allergies":" pollen "}`), &in))
	in.apply(&p)
	assert.Equal(t, "beagle", p.Breed)
	assert.Equal(t, "pollen", p.Allergies)
	require.NotNil(t, p.Age)
	assert.Equal(t, 4, *p.Age)
}
