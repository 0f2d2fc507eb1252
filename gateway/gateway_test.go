package gateway_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafast-dev/grafast/gateway"
	"github.com/grafast-dev/grafast/gql"
	"github.com/grafast-dev/grafast/resolvers"
)

const gatewayTestSDL = `
directive @inaccessible on FIELD_DEFINITION

type Query {
  product(id: ID!): Product
}

type Product {
  id: ID!
  name: String!
  internalCode: String! @inaccessible
}
`

func buildTestGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	schema, err := gql.LoadSchema("gateway_test.graphql", gatewayTestSDL)
	require.NoError(t, err)

	table := resolvers.NewTable()
	table.MustRegister("Query", "product", resolvers.ConstantResolver(map[string]any{"id": "1", "name": "Widget"}))
	table.MustRegister("Product", "id", resolvers.AccessResolver("id"))
	table.MustRegister("Product", "name", resolvers.AccessResolver("name"))

	engine := gateway.NewEngine(schema, table, nil)
	return gateway.NewGateway(engine, gateway.Config{})
}

func postQuery(t *testing.T, gw *gateway.Gateway, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"query": query})
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, httpReq)
	return w
}

func TestGatewayRejectsNonPostMethod(t *testing.T) {
	gw := buildTestGateway(t)
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGatewayAccessibleFieldSucceeds(t *testing.T) {
	gw := buildTestGateway(t)
	w := postQuery(t, gw, `{ product(id: "1") { id name } }`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Nil(t, resp["errors"])

	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	product, ok := data["product"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Widget", product["name"])
}

func TestGatewayInaccessibleFieldFails(t *testing.T) {
	gw := buildTestGateway(t)
	w := postQuery(t, gw, `{ product(id: "1") { id internalCode } }`)
	require.Equal(t, http.StatusOK, w.Code, "GraphQL errors are reported in the body, not the HTTP status")

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	errs, ok := resp["errors"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, errs)

	first, ok := errs[0].(map[string]any)
	require.True(t, ok)
	ext, ok := first["extensions"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "INACCESSIBLE_FIELD", ext["code"])
}

func TestGatewayInvalidJSONBodyIsBadRequest(t *testing.T) {
	gw := buildTestGateway(t)
	httpReq := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
