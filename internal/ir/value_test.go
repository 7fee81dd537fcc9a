package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIRDecimal(t *testing.T) {
	valid := []string{"0", "12", "-3", "12.50", "0.001"}
	for _, s := range valid {
		d, err := NewIRDecimal(s)
		require.NoError(t, err, s)
		assert.Equal(t, IRDecimal(s), d)
	}

	invalid := []string{"", "01", "1.", ".5", "1e10", "abc", "--1"}
	for _, s := range invalid {
		_, err := NewIRDecimal(s)
		assert.Error(t, err, s)
	}
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "abc", IRString("abc")},
		{"bool", true, IRBool(true)},
		{"int", 42, IRInt(42)},
		{"int64", int64(-7), IRInt(-7)},
		{"json int", json.Number("9007199254740993"), IRInt(9007199254740993)},
		{"json decimal", json.Number("12.5"), IRDecimal("12.5")},
		{"array", []any{"a", 1}, IRArray{IRString("a"), IRInt(1)}},
		{"object", map[string]any{"k": false}, IRObject{"k": IRBool(false)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromGo(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFromGo_RejectsFloat(t *testing.T) {
	_, err := FromGo(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimal")

	_, err = FromGo([]any{"ok", float32(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1]")
}

func TestToParam(t *testing.T) {
	p, err := ToParam(IRDecimal("10.25"))
	require.NoError(t, err)
	assert.Equal(t, "10.25", p)

	p, err = ToParam(IRNull{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ToParam(IRArray{})
	assert.Error(t, err)
}

func TestIRObject_MarshalJSONSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"alpha": IRDecimal("2.5"),
		"mid":   IRNull{},
	}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2.5,"mid":null,"zebra":1}`, string(data))
}

func TestUnmarshalIR(t *testing.T) {
	v, err := UnmarshalIR([]byte(`{"a":[1,"x",true,null,"2.5"],"big":9007199254740993,"d":1.25}`))
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"a":   IRArray{IRInt(1), IRString("x"), IRBool(true), IRNull{}, IRString("2.5")},
		"big": IRInt(9007199254740993),
		"d":   IRDecimal("1.25"),
	}, v)

	_, err = UnmarshalIR([]byte(`{`))
	assert.Error(t, err)
}
