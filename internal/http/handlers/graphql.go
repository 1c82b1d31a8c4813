package handlers

import (
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
)

// maxGraphQLBody bounds request bodies; queries here are small.
const maxGraphQLBody = 1 << 20

// GraphQLHandler serves the schema over GET and POST, and GraphiQL when enabled.
type GraphQLHandler struct {
	inner http.Handler
}

// NewGraphQLHandler wraps schema in graphql-go's HTTP handler. The request
// context, carrying any authenticated identity, is passed to resolvers.
func NewGraphQLHandler(schema *graphql.Schema, graphiql bool) *GraphQLHandler {
	return &GraphQLHandler{
		inner: handler.New(&handler.Config{
			Schema:   schema,
			Pretty:   false,
			GraphiQL: graphiql,
		}),
	}
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxGraphQLBody)
	h.inner.ServeHTTP(w, r)
}
