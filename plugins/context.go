// Package plugins implements prompt-context enrichment: a closed set of
// plugin capabilities, an enable/order registry, and the pipeline that runs
// an ordered snapshot of enabled plugins into prompt context items.
package plugins

// ContextItem is one plugin's contribution to a pipeline run. Items are
// immutable once produced and live only for the duration of one run.
type ContextItem struct {
	// Name is the contributing plugin's name, unique within a run.
	Name string

	// Value is the text fragment injected into the prompt.
	Value string

	// Description is a human-readable summary for display and logging.
	Description string
}

// FindItem returns the item contributed under the given name, or nil.
// Used by plugins that declare a dependency on another plugin's output.
func FindItem(items []ContextItem, name string) *ContextItem {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	return nil
}
