package config

import (
	"fmt"
	"strings"

	"hpipulse/internal/dataset"
)

// DefaultSources lists the house price extracts merged when no sources are
// configured. The first entry is the base table.
func DefaultSources() []dataset.Source {
	return []dataset.Source{
		{ID: "property-type", Path: "Average-prices-Property-Type-2025-06.csv", Namespace: "PropertyType"},
		{ID: "cash-mortgage", Path: "Cash-mortgage-sales-2025-06.csv", Namespace: "CashMortgage"},
		{ID: "buyer-type", Path: "First-Time-Buyer-Former-Owner-Occupied-2025-06.csv", Namespace: "BuyerType"},
		{ID: "indices", Path: "Indices-2025-06.csv", Namespace: "Indices"},
		{ID: "indices-sa", Path: "Indices-seasonally-adjusted-2025-06.csv", Namespace: "IndicesSA"},
		{ID: "new-old", Path: "New-and-Old-2025-06.csv", Namespace: "NewOld"},
		{ID: "sales", Path: "Sales-2025-06.csv", Namespace: "Sales"},
	}
}

// ParseSourceSpec parses a compact source declaration of the form
// "path", "namespace=path" or "id:namespace=path".
func ParseSourceSpec(spec string) (dataset.Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return dataset.Source{}, fmt.Errorf("empty source declaration")
	}

	var src dataset.Source
	head, path, hasNamespace := strings.Cut(spec, "=")
	if !hasNamespace {
		src.Path = head
	} else {
		src.Path = path
		if id, ns, hasID := strings.Cut(head, ":"); hasID {
			src.ID = strings.TrimSpace(id)
			src.Namespace = strings.TrimSpace(ns)
		} else {
			src.Namespace = strings.TrimSpace(head)
		}
	}
	src.Path = strings.TrimSpace(src.Path)
	if src.Path == "" {
		return dataset.Source{}, fmt.Errorf("source %q has no path", spec)
	}
	return src, nil
}

// ParseSourceSpecs parses every declaration in order.
func ParseSourceSpecs(specs []string) ([]dataset.Source, error) {
	sources := make([]dataset.Source, 0, len(specs))
	for _, spec := range specs {
		src, err := ParseSourceSpec(spec)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
