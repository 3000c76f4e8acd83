package llm

// BooksSchemaName is the json_schema name sent with extraction requests.
const BooksSchemaName = "books_list"

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// booksResponseFormat forces {"books":[{"title","author"}]} with no extra keys.
func booksResponseFormat() responseFormat {
	book := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "author"},
		"properties": map[string]any{
			"title":  map[string]any{"type": "string"},
			"author": map[string]any{"type": "string"},
		},
	}
	return responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   BooksSchemaName,
			Strict: true,
			Schema: map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"books"},
				"properties": map[string]any{
					"books": map[string]any{
						"type":  "array",
						"items": book,
					},
				},
			},
		},
	}
}

func jsonObjectFormat() responseFormat {
	return responseFormat{Type: "json_object"}
}
