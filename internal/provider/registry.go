package provider

import "sort"

// LLMRegistry is the capability-surface registry spec §4.7 calls for: LLM
// providers {sarvam, openai, anthropic} selected by name behind the one
// LLMClient contract, plus the static model-metadata catalog for `GET
// /llm/providers` and `GET /llm/models`.
type LLMRegistry struct {
	clients map[string]LLMClient
	order   []string
	deflt   string
}

func NewLLMRegistry(defaultProvider string, clients ...LLMClient) *LLMRegistry {
	r := &LLMRegistry{clients: make(map[string]LLMClient, len(clients)), deflt: defaultProvider}
	for _, c := range clients {
		r.clients[c.Name()] = c
		r.order = append(r.order, c.Name())
	}
	sort.Strings(r.order)
	return r
}

// Get resolves a named provider, falling back to the registry's default
// when name is empty or unknown.
func (r *LLMRegistry) Get(name string) (LLMClient, bool) {
	if name == "" {
		name = r.deflt
	}
	c, ok := r.clients[name]
	if !ok {
		c, ok = r.clients[r.deflt]
	}
	return c, ok
}

// Providers lists every registered provider name for `GET /llm/providers`.
func (r *LLMRegistry) Providers() []string {
	return append([]string(nil), r.order...)
}

// Models flattens every provider's static model_metadata table for `GET
// /llm/models`, tagging each entry with its owning provider.
type ModelCatalogEntry struct {
	Provider string
	ModelMetadata
}

func (r *LLMRegistry) Models() []ModelCatalogEntry {
	var out []ModelCatalogEntry
	for _, name := range r.order {
		for _, m := range r.clients[name].ModelMetadata() {
			out = append(out, ModelCatalogEntry{Provider: name, ModelMetadata: m})
		}
	}
	return out
}
