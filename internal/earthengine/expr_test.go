package earthengine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphRegistersLambdaBodies(t *testing.T) {
	g := NewGraph()
	body := Call("Image.select", Args{"input": Arg("img"), "bandSelectors": names("VV")})
	fn := g.Lambda(body, "img")
	expr := g.Expression(Call("Collection.map", Args{"collection": Const("c"), "baseAlgorithm": fn}))

	require.Len(t, expr.Values, 2)
	assert.Same(t, body, expr.Values[fn.Function.Body])
	assert.Equal(t, "Collection.map", expr.Values[expr.Result].Invocation.FunctionName)
	assert.NotEqual(t, fn.Function.Body, expr.Result)
}

func TestValueEncoding(t *testing.T) {
	data, err := json.Marshal(Call("Filter.equals", Args{"leftField": Const("resolution_meters"), "rightValue": Const(0)}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"functionInvocationValue": {
		"functionName": "Filter.equals",
		"arguments": {
			"leftField": {"constantValue": "resolution_meters"},
			"rightValue": {"constantValue": 0}
		}
	}}`, string(data))

	data, err = json.Marshal(Array())
	require.NoError(t, err)
	assert.JSONEq(t, `{"arrayValue": {"values": []}}`, string(data))

	data, err = json.Marshal(Arg("img"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"argumentReference": "img"}`, string(data))
}
