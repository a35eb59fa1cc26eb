package migrate

func init() {
	Register(Migration{
		Name:        "add-table-columns-default",
		FromVersion: 1,
		RewriteRecord: func(m map[string]any) (map[string]any, error) {
			if m["item_type"] == "table" {
				if _, ok := m["table_columns"]; !ok {
					m["table_columns"] = []any{}
				}
				if _, ok := m["number_of_visible_columns"]; !ok {
					m["number_of_visible_columns"] = float64(3)
				}
			}
			return m, nil
		},
	})

	Register(Migration{
		Name:        "add-grid-number-of-columns-default",
		FromVersion: 2,
		RewriteRecord: func(m map[string]any) (map[string]any, error) {
			if m["item_type"] == "page" {
				if _, ok := m["grid_number_of_columns"]; !ok {
					m["grid_number_of_columns"] = float64(10)
				}
			}
			return m, nil
		},
	})
}
